package heuristics

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/quotecall/quotecall/pkg/models"
)

func TestExtractQuotes(t *testing.T) {
	parts := []models.Part{{PartNumber: "AHC-18598", Description: "hydraulic coupler", Quantity: 1}}

	t.Run("well formed response", func(t *testing.T) {
		svc := &fakeService{structured: json.RawMessage(
			`[{"part_number":"AHC-18598","price":42.5,"availability":"in_stock","lead_time_days":null,"notes":null,"is_substitute":false,"original_part_number":null}]`)}

		quotes := ExtractQuotes(context.Background(), svc, "That's $42.50, in stock.", parts, nil)
		if len(quotes) != 1 {
			t.Fatalf("expected 1 quote, got %d", len(quotes))
		}
		q := quotes[0]
		if q.PartNumber != "AHC-18598" || q.Price == nil || *q.Price != 42.5 {
			t.Errorf("unexpected quote: %+v", q)
		}
		if q.Availability != models.AvailabilityInStock {
			t.Errorf("expected in_stock, got %s", q.Availability)
		}
	})

	t.Run("substitute entry keeps linkage", func(t *testing.T) {
		svc := &fakeService{structured: json.RawMessage(
			`[{"part_number":"AHC-STD","price":38,"availability":"backorder","lead_time_days":14,"is_substitute":true,"original_part_number":"AHC-18598"}]`)}

		quotes := ExtractQuotes(context.Background(), svc, "We carry the standard version instead.", parts, nil)
		if len(quotes) != 1 {
			t.Fatalf("expected 1 quote, got %d", len(quotes))
		}
		q := quotes[0]
		if !q.IsSubstitute || q.OriginalPartNumber != "AHC-18598" {
			t.Errorf("expected substitute linkage, got %+v", q)
		}
		if q.LeadTimeDays == nil || *q.LeadTimeDays != 14 {
			t.Errorf("expected 14 day lead time, got %+v", q.LeadTimeDays)
		}
	})

	t.Run("model failure yields empty", func(t *testing.T) {
		svc := &fakeService{structErr: errors.New("timeout")}
		if quotes := ExtractQuotes(context.Background(), svc, "it's $10", parts, nil); quotes != nil {
			t.Errorf("expected nil quotes on failure, got %v", quotes)
		}
	})
}

func TestParseQuotesJSON(t *testing.T) {
	t.Run("drops entries without part numbers", func(t *testing.T) {
		quotes := ParseQuotesJSON(json.RawMessage(`[{"part_number":"","price":10},{"part_number":"A1","price":5}]`))
		if len(quotes) != 1 || quotes[0].PartNumber != "A1" {
			t.Errorf("expected only A1, got %v", quotes)
		}
	})

	t.Run("unknown availability coerces to in_stock", func(t *testing.T) {
		quotes := ParseQuotesJSON(json.RawMessage(`[{"part_number":"A1","availability":"maybe"}]`))
		if len(quotes) != 1 || quotes[0].Availability != models.AvailabilityInStock {
			t.Errorf("expected in_stock coercion, got %v", quotes)
		}
	})

	t.Run("non-array input yields nil", func(t *testing.T) {
		if quotes := ParseQuotesJSON(json.RawMessage(`{"part_number":"A1"}`)); quotes != nil {
			t.Errorf("expected nil for object input, got %v", quotes)
		}
	})

	t.Run("empty array yields nil", func(t *testing.T) {
		if quotes := ParseQuotesJSON(json.RawMessage(`[]`)); quotes != nil {
			t.Errorf("expected nil for empty array, got %v", quotes)
		}
	})
}
