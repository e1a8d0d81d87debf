package candidate

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/insights-cli/internal/model"
	"github.com/sells-group/insights-cli/internal/resilience"
	"github.com/sells-group/insights-cli/pkg/anthropic"
)

// Generator produces one SQL statement for a question. Implementations must
// be safe for concurrent use: the consensus tier calls GenerateSQL from
// three goroutines at once.
type Generator interface {
	GenerateSQL(ctx context.Context, q model.Question) (string, error)
}

const sqlSystemPrompt = `You translate venue analytics questions into a single PostgreSQL SELECT statement.

Schema:
  orders(id, venue_id, status, total, created_at)
  order_items(id, order_id, venue_id, product_name, category, quantity, unit_price, created_at)
  reviews(id, venue_id, rating, comment, created_at)

Rules:
- Respond with SQL only. No prose, no markdown fences.
- Exactly one SELECT statement. Never modify data.
- Always include venue_id = '<the venue_id from the question context>' as a top-level AND condition in WHERE.
- Completed sales have status = 'PAID'.`

// generationTemperature keeps the three consensus generations genuinely
// independent; zero temperature would make voting pointless.
const generationTemperature = 0.7

// ClaudeGenerator generates SQL with the Anthropic API. Transient provider
// failures are retried inside the call, behind a circuit breaker shared by
// all concurrent generations; the candidate itself is never retried by the
// runner.
type ClaudeGenerator struct {
	client    anthropic.Client
	modelName string
	retry     resilience.RetryConfig
	breaker   *resilience.CircuitBreaker
}

// NewClaudeGenerator creates a generator using the given model and retry
// policy.
func NewClaudeGenerator(client anthropic.Client, modelName string, retry resilience.RetryConfig) *ClaudeGenerator {
	retry.OnRetry = resilience.RetryLogger("anthropic", "generate_sql")
	cfg := resilience.DefaultCircuitBreakerConfig()
	cfg.ShouldTrip = resilience.IsTransient
	return &ClaudeGenerator{
		client:    client,
		modelName: modelName,
		retry:     retry,
		breaker:   resilience.NewCircuitBreaker(cfg),
	}
}

// GenerateSQL asks the model for a SQL rendering of the question.
func (g *ClaudeGenerator) GenerateSQL(ctx context.Context, q model.Question) (string, error) {
	temp := generationTemperature
	req := anthropic.MessageRequest{
		Model:       g.modelName,
		MaxTokens:   1024,
		Temperature: &temp,
		System: []anthropic.SystemBlock{
			{Text: sqlSystemPrompt, CacheControl: &anthropic.CacheControl{TTL: "5m"}},
		},
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf("venue_id: %s\nQuestion: %s", q.TenantID, q.Text)},
		},
	}

	resp, err := resilience.DoVal(ctx, g.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return resilience.ExecuteVal(ctx, g.breaker, func(ctx context.Context) (*anthropic.MessageResponse, error) {
			return g.client.CreateMessage(ctx, req)
		})
	})
	if err != nil {
		return "", eris.Wrap(err, "candidate: generate SQL")
	}
	resp.Usage.LogCost(g.modelName, "generate_sql")

	sql := CleanSQL(resp.Text())
	if sql == "" {
		return "", eris.New("candidate: model returned no SQL")
	}
	return sql, nil
}

// CleanSQL strips markdown fences and surrounding noise from model output,
// returning the bare statement.
func CleanSQL(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```sql")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.Index(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	text = strings.TrimSpace(text)
	return strings.TrimSuffix(text, ";")
}
