package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/quka-ai/daybook/pkg/media/capture"
	"github.com/quka-ai/daybook/pkg/types"
)

func NewJournalCommand() *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "read and write journal entries",
	}
	opts.AddFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newListCommand(opts),
		newCreateCommand(opts),
		newEditCommand(opts),
		newDeleteCommand(opts),
		newDayCommand(opts),
		newRecordCommand(opts),
		newPromptCommand(opts),
		newReflectCommand(opts),
		newChatCommand(opts),
	)
	return cmd
}

func newListCommand(opts *Options) *cobra.Command {
	var (
		tag       string
		entryType string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "list entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			entries := lo.Filter(s.store.Entries(), func(item types.Entry, _ int) bool {
				if tag != "" && !lo.Contains(item.Tags, strings.ToLower(tag)) {
					return false
				}
				return entryType == "" || item.Type == types.EntryType(entryType)
			})
			renderEntries(cmd.OutOrStdout(), entries, s.app.Cfg().Journal.Location())
			return nil
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "only entries with this tag")
	cmd.Flags().StringVar(&entryType, "type", "", "only entries of this type (text, audio, video)")
	return cmd
}

type entryFlags struct {
	title   string
	content string
	tags    []string
	date    string
}

func (f *entryFlags) add(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "entry title")
	cmd.Flags().StringVar(&f.content, "content", "", "entry content")
	cmd.Flags().StringSliceVar(&f.tags, "tags", nil, "comma separated tags")
	cmd.Flags().StringVar(&f.date, "date", "", "entry date, YYYY-MM-DD")
}

func parseDate(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Now(), nil
	}
	return time.ParseInLocation(types.DATE_LAYOUT, value, loc)
}

func newCreateCommand(opts *Options) *cobra.Command {
	flags := &entryFlags{}
	cmd := &cobra.Command{
		Use:   "new",
		Short: "write a text entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			date, err := parseDate(flags.date, s.app.Cfg().Journal.Location())
			if err != nil {
				return err
			}

			entry, err := s.store.Create(cmd.Context(), types.EntryDraft{
				Date:      date,
				Title:     flags.title,
				Content:   flags.content,
				Tags:      flags.tags,
				Type:      types.ENTRY_TYPE_TEXT,
				Wallpaper: s.app.Cfg().Journal.DefaultWallpaper,
			})
			if err != nil {
				return err
			}
			renderEntry(cmd.OutOrStdout(), entry, s.app.Cfg().Journal.Location())
			return nil
		},
	}
	flags.add(cmd)
	return cmd
}

func newEditCommand(opts *Options) *cobra.Command {
	flags := &entryFlags{}
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "edit an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if !s.store.Select(args[0]) {
				return fmt.Errorf("entry %s not found", args[0])
			}
			entry, _ := s.store.Current()

			if cmd.Flags().Changed("title") {
				entry.Title = flags.title
			}
			if cmd.Flags().Changed("content") {
				entry.Content = flags.content
			}
			if cmd.Flags().Changed("tags") {
				entry.Tags = flags.tags
			}
			if cmd.Flags().Changed("date") {
				date, err := parseDate(flags.date, s.app.Cfg().Journal.Location())
				if err != nil {
					return err
				}
				entry.Date = date.Unix()
			}

			updated, err := s.store.Update(cmd.Context(), entry)
			if err != nil {
				return err
			}
			renderEntry(cmd.OutOrStdout(), updated, s.app.Cfg().Journal.Location())
			return nil
		},
	}
	flags.add(cmd)
	return cmd
}

func newDeleteCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "delete an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if err = s.store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "entry %s deleted\n", args[0])
			return nil
		},
	}
}

func newDayCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "day [YYYY-MM-DD]",
		Short: "show the entry written on a day, today by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			loc := s.app.Cfg().Journal.Location()
			date, err := parseDate(lo.FirstOrEmpty(args), loc)
			if err != nil {
				return err
			}

			entry, ok := s.store.ForDate(date)
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "no entry on %s\n", date.In(loc).Format(types.DATE_LAYOUT))
				return nil
			}
			renderEntry(cmd.OutOrStdout(), entry, loc)
			return nil
		},
	}
}

func newRecordCommand(opts *Options) *cobra.Command {
	var (
		title    string
		tags     []string
		duration time.Duration
	)
	cmd := &cobra.Command{
		Use:       "record <audio|video>",
		Short:     "record from local devices and save it as an entry",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{types.ENTRY_TYPE_AUDIO.String(), types.ENTRY_TYPE_VIDEO.String()},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := types.EntryType(args[0])
			if !kind.IsMedia() {
				return fmt.Errorf("unsupported media kind %q", args[0])
			}

			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}

			recorder := capture.NewRecorder(capture.NewFFmpegSource(), capture.Options{
				TimeSlice: s.app.Cfg().Media.TimeSlice(),
				OnError: func(err error) {
					slog.Error("recording failed", slog.String("error", err.Error()))
				},
			})

			start := recorder.StartAudio
			if kind == types.ENTRY_TYPE_VIDEO {
				start = recorder.StartVideo
			}
			if err = start(cmd.Context()); err != nil {
				return err
			}

			waitForStop(cmd, duration)
			recorder.Stop()

			blob := recorder.Blob()
			if blob.Size() == 0 {
				return fmt.Errorf("nothing was recorded")
			}
			if title == "" {
				title = fmt.Sprintf("%s note %s", kind, time.Now().Format("2006-01-02 15:04"))
			}

			entry, err := s.store.Save(cmd.Context(), types.EntryDraft{
				Title:     title,
				Tags:      tags,
				Type:      kind,
				Wallpaper: s.app.Cfg().Journal.DefaultWallpaper,
			}, blob)
			if err != nil {
				return err
			}
			renderEntry(cmd.OutOrStdout(), entry, s.app.Cfg().Journal.Location())
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "entry title")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "comma separated tags")
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this duration, otherwise press Enter")
	return cmd
}

// waitForStop 阻塞直到时长结束、用户按下回车或收到中断信号
func waitForStop(cmd *cobra.Command, duration time.Duration) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	enter := make(chan struct{})
	var timeout <-chan time.Time
	if duration > 0 {
		timeout = time.After(duration)
		cmd.Printf("recording for %s...\n", duration)
	} else {
		cmd.Println("recording, press Enter to stop...")
		go func() {
			_, _ = bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			close(enter)
		}()
	}

	select {
	case <-enter:
	case <-timeout:
	case <-sigs:
	case <-cmd.Context().Done():
	}
}

func newPromptCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "prompt",
		Short: "get a writing prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.app.Assistant().Prompt(cmd.Context()))
			return nil
		},
	}
}

func newReflectCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "reflect <id>",
		Short: "reflect on an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if !s.store.Select(args[0]) {
				return fmt.Errorf("entry %s not found", args[0])
			}
			entry, _ := s.store.Current()
			text := lo.Ternary(strings.TrimSpace(entry.Content) != "", entry.Content, entry.Title)
			fmt.Fprintln(cmd.OutOrStdout(), s.app.Assistant().Reflect(cmd.Context(), text))
			return nil
		},
	}
}

func newChatCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "chat with the journaling assistant, an empty line quits",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return chatLoop(cmd.Context(), cmd, s.app.Assistant())
		},
	}
}

type chatter interface {
	Chat(ctx context.Context, history []types.MessageContext, input string) string
}

func chatLoop(ctx context.Context, cmd *cobra.Command, assistant chatter) error {
	var history []types.MessageContext
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(cmd.OutOrStdout(), "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			return nil
		}

		reply := assistant.Chat(ctx, history, input)
		fmt.Fprintln(cmd.OutOrStdout(), reply)
		history = append(history,
			types.MessageContext{Role: types.USER_ROLE_USER, Content: input},
			types.MessageContext{Role: types.USER_ROLE_ASSISTANT, Content: reply})
	}
}
