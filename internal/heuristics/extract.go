package heuristics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quotecall/quotecall/internal/llm"
	"github.com/quotecall/quotecall/pkg/models"
)

// extractedQuoteJSON is the shape we ask the model to produce. Fields
// are pointers so missing or null values coerce cleanly.
type extractedQuoteJSON struct {
	PartNumber         string   `json:"part_number"`
	Price              *float64 `json:"price"`
	Availability       string   `json:"availability"`
	LeadTimeDays       *int     `json:"lead_time_days"`
	Notes              *string  `json:"notes"`
	IsSubstitute       bool     `json:"is_substitute"`
	OriginalPartNumber *string  `json:"original_part_number"`
}

// ExtractQuotes pulls structured quotes out of supplier speech. recent
// supplies the last few turns for context and may be nil. On any model
// or parse failure the result is an empty slice, never an error: a
// missed extraction costs one clarifying turn, a crashed turn costs
// the call.
func ExtractQuotes(ctx context.Context, svc llm.Service, text string, parts []models.Part, recent []models.Message) []models.ExtractedQuote {
	prompt := buildExtractionPrompt(text, parts, recent)

	raw, err := svc.Structured(ctx, prompt, llm.CompleteOptions{
		MaxTokens: 1024,
	})
	if err != nil {
		return nil
	}
	return ParseQuotesJSON(raw)
}

// ParseQuotesJSON decodes a JSON array of quotes, dropping entries that
// lack a part number and coercing unknown availability values to
// in_stock. Returns nil on any decode failure.
func ParseQuotesJSON(raw json.RawMessage) []models.ExtractedQuote {
	var entries []extractedQuoteJSON
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}

	var quotes []models.ExtractedQuote
	for _, e := range entries {
		if strings.TrimSpace(e.PartNumber) == "" {
			continue
		}
		q := models.ExtractedQuote{
			PartNumber:   strings.TrimSpace(e.PartNumber),
			Price:        e.Price,
			Availability: parseAvailability(e.Availability),
			LeadTimeDays: e.LeadTimeDays,
			IsSubstitute: e.IsSubstitute,
		}
		if e.Notes != nil {
			q.Notes = *e.Notes
		}
		if e.OriginalPartNumber != nil {
			q.OriginalPartNumber = strings.TrimSpace(*e.OriginalPartNumber)
		}
		quotes = append(quotes, q)
	}
	return quotes
}

func parseAvailability(s string) models.Availability {
	switch models.Availability(strings.ToLower(strings.TrimSpace(s))) {
	case models.AvailabilityBackorder:
		return models.AvailabilityBackorder
	case models.AvailabilityUnavailable:
		return models.AvailabilityUnavailable
	default:
		return models.AvailabilityInStock
	}
}

func buildExtractionPrompt(text string, parts []models.Part, recent []models.Message) string {
	var b strings.Builder
	b.WriteString("Extract part quotes from this supplier statement on a parts call.\n\n")

	b.WriteString("Requested parts:\n")
	for _, p := range parts {
		fmt.Fprintf(&b, "- %s (%s), qty %d\n", p.PartNumber, p.Description, p.Quantity)
	}

	if len(recent) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, m := range recent {
			fmt.Fprintf(&b, "%s: %s\n", m.Speaker, m.Text)
		}
	}

	fmt.Fprintf(&b, "\nSupplier statement: %q\n\n", text)
	b.WriteString(`Respond with a JSON array, one entry per quoted part. Schema:
[{"part_number": string, "price": number|null, "availability": "in_stock"|"backorder"|"unavailable", "lead_time_days": number|null, "notes": string|null, "is_substitute": bool, "original_part_number": string|null}]
If the supplier offered a substitute, set is_substitute and link original_part_number to the requested part. Respond with [] if no quote was given.`)
	return b.String()
}
