package assistant

import (
	"context"
	"strings"
	"time"

	"github.com/quka-ai/daybook/pkg/types"
)

const (
	SCRIPTED_PROMPT    = "What would your 10-year-old self think about your life today?"
	SCRIPTED_REFLECT   = "I notice themes of growth and challenge in your entry. How might this experience shape your approach to similar situations in the future?"
	SCRIPTED_SUMMARIZE = "The entry expresses mixed feelings about a challenging work situation, highlighting both frustration and determination to overcome obstacles."
	SCRIPTED_DEFAULT   = "Thank you for sharing. Your journey of self-reflection is valuable."
)

// ScriptedDriver answers with canned texts picked by the leading system persona.
// It is used when no completion api is configured.
type ScriptedDriver struct {
	Delay time.Duration
}

func (d ScriptedDriver) Complete(ctx context.Context, messages []types.MessageContext) (string, error) {
	if d.Delay > 0 {
		select {
		case <-time.After(d.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if len(messages) > 0 && messages[0].Role == types.USER_ROLE_SYSTEM {
		persona := messages[0].Content
		switch {
		case strings.Contains(persona, "journaling prompt"):
			return SCRIPTED_PROMPT, nil
		case strings.Contains(persona, "reflection"):
			return SCRIPTED_REFLECT, nil
		case strings.Contains(persona, "ummariz"):
			return SCRIPTED_SUMMARIZE, nil
		}
	}
	return SCRIPTED_DEFAULT, nil
}
