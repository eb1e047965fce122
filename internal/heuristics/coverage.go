package heuristics

import "github.com/quotecall/quotecall/pkg/models"

// HasPricingForAllParts reports whether every requested part has at
// least one priced quote, either directly or through a substitute
// linked back via OriginalPartNumber. An empty parts list yields false.
func HasPricingForAllParts(parts []models.Part, quotes []models.ExtractedQuote) bool {
	if len(parts) == 0 {
		return false
	}

	for _, part := range parts {
		if !hasPricedQuote(part.PartNumber, quotes) {
			return false
		}
	}
	return true
}

// hasPricedQuote honors the OriginalPartNumber link unconditionally,
// the same rule the confirmation summary uses to pick a best quote.
func hasPricedQuote(partNumber string, quotes []models.ExtractedQuote) bool {
	for _, q := range quotes {
		if q.Price == nil {
			continue
		}
		if q.PartNumber == partNumber || q.OriginalPartNumber == partNumber {
			return true
		}
	}
	return false
}

// PartsMissingPricing returns the requested parts that still lack a
// priced quote, preserving request order.
func PartsMissingPricing(parts []models.Part, quotes []models.ExtractedQuote) []models.Part {
	var missing []models.Part
	for _, part := range parts {
		if !hasPricedQuote(part.PartNumber, quotes) {
			missing = append(missing, part)
		}
	}
	return missing
}

// HasShipmentDependentParts reports whether any quoted part is on
// backorder or unavailable, which makes freight and misc costs part of
// the total picture.
func HasShipmentDependentParts(quotes []models.ExtractedQuote) bool {
	for _, q := range quotes {
		if q.Availability == models.AvailabilityBackorder || q.Availability == models.AvailabilityUnavailable {
			return true
		}
	}
	return false
}
