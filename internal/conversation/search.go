package conversation

import (
	"context"
	"time"

	"github.com/giho-tech/helpdesk/internal/gateway"
	"github.com/giho-tech/helpdesk/internal/llm"
)

// SolutionView is a knowledge-base hit or an AI answer in the shape the
// web client renders.
type SolutionView struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Keywords    string    `json:"keywords"`
	VideoURL    *string   `json:"videoUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

const aiKeywords = "ai, auto-generated"

// Search answers a one-shot query: knowledge base when no media is given,
// otherwise (or when nothing matched) the AI gateway. An empty query
// yields no results.
func (e *Engine) Search(ctx context.Context, query string, media *llm.Media) ([]SolutionView, error) {
	if query == "" {
		return []SolutionView{}, nil
	}

	if media == nil {
		lookupCtx, cancel := context.WithTimeout(ctx, e.opts.LookupTimeout)
		defer cancel()
		sols, err := e.deps.Knowledge.Search(lookupCtx, query, e.opts.ResultLimit)
		if err != nil {
			return nil, err
		}
		if len(sols) > 0 {
			views := make([]SolutionView, 0, len(sols))
			for _, s := range sols {
				v := SolutionView{
					ID:          s.ID,
					Title:       s.Title,
					Description: s.Description,
					Keywords:    s.Keywords,
					CreatedAt:   s.CreatedAt,
					UpdatedAt:   s.UpdatedAt,
				}
				if s.VideoURL != "" {
					url := s.VideoURL
					v.VideoURL = &url
				}
				views = append(views, v)
			}
			return views, nil
		}
	}

	var kind llm.MediaKind
	if media != nil {
		kind = media.Kind
	}
	ans := e.deps.AI.Ask(ctx, gateway.DiagnosticPrompt(query, kind), media)
	now := e.opts.Now()
	switch ans.ID {
	case gateway.AIGenerated:
		return []SolutionView{{
			ID:          string(gateway.AIGenerated),
			Title:       ans.Title,
			Description: ans.Text,
			Keywords:    aiKeywords,
			CreatedAt:   now,
			UpdatedAt:   now,
		}}, nil
	case gateway.NeedTechnician:
		return []SolutionView{{ID: string(gateway.NeedTechnician), CreatedAt: now, UpdatedAt: now}}, nil
	default:
		return []SolutionView{}, nil
	}
}
