package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	v1 "github.com/quka-ai/daybook/app/logic/v1"
	"github.com/quka-ai/daybook/app/response"
	"github.com/quka-ai/daybook/pkg/types"
	"github.com/quka-ai/daybook/pkg/utils"
)

func (s *HttpSrv) ListEntries(c *gin.Context) {
	var (
		err error
		req v1.ListEntriesRequest
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	list, total, err := v1.NewJournalLogic(c, s.Core).ListEntries(req)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, response.ListResponse[types.Entry]{
		List:  list,
		Total: total,
	})
}

type CreateEntryRequest struct {
	Title     string          `json:"title" binding:"required"`
	Content   string          `json:"content"`
	Tags      []string        `json:"tags"`
	Type      types.EntryType `json:"type"`
	MediaURL  string          `json:"media_url"`
	Wallpaper string          `json:"wallpaper"`
	Date      int64           `json:"date"`
}

func (r CreateEntryRequest) Draft() types.EntryDraft {
	draft := types.EntryDraft{
		Title:     r.Title,
		Content:   r.Content,
		Tags:      r.Tags,
		Type:      r.Type,
		MediaURL:  r.MediaURL,
		Wallpaper: r.Wallpaper,
	}
	if r.Date > 0 {
		draft.Date = time.Unix(r.Date, 0)
	}
	return draft
}

func (s *HttpSrv) CreateEntry(c *gin.Context) {
	var (
		err error
		req CreateEntryRequest
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	entry, err := v1.NewJournalLogic(c, s.Core).CreateEntry(req.Draft())
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, entry)
}

func (s *HttpSrv) UpdateEntry(c *gin.Context) {
	var (
		err error
		req v1.EntryPatch
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	entry, err := v1.NewJournalLogic(c, s.Core).UpdateEntry(c.Param("id"), req)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, entry)
}

func (s *HttpSrv) DeleteEntry(c *gin.Context) {
	if err := v1.NewJournalLogic(c, s.Core).DeleteEntry(c.Param("id")); err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, nil)
}

type GetEntryByDateRequest struct {
	Date string `json:"date" form:"date" binding:"required"`
}

func (s *HttpSrv) GetEntryByDate(c *gin.Context) {
	var (
		err error
		req GetEntryByDateRequest
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	entry, err := v1.NewJournalLogic(c, s.Core).GetEntryByDate(req.Date)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, entry)
}

type SummarizeEntryResponse struct {
	Summary string `json:"summary"`
}

func (s *HttpSrv) SummarizeEntry(c *gin.Context) {
	summary, err := v1.NewJournalLogic(c, s.Core).SummarizeEntry(c.Param("id"))
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, SummarizeEntryResponse{Summary: summary})
}
