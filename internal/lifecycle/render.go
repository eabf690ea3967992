package lifecycle

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"pickup-backend/internal/models"
)

// RenderReport formats a report as plain text for download.
func RenderReport(report *models.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Report ID: %s\n", report.ReportID)
	fmt.Fprintf(&b, "Verification Date: %s\n", report.VerificationDate.UTC().Format(time.RFC3339))
	b.WriteString("\nCustomer Details\n")
	fmt.Fprintf(&b, "  Name: %s\n", report.CustomerDetails.Name)
	fmt.Fprintf(&b, "  Phone: %s\n", report.CustomerDetails.Phone)
	fmt.Fprintf(&b, "  Address: %s\n", report.CustomerDetails.Address)
	fmt.Fprintf(&b, "  Pickup: %s %s\n", report.CustomerDetails.PickupDate, report.CustomerDetails.PickupTime)
	fmt.Fprintf(&b, "\nItem Details: %s\n", report.ItemDetails)

	renderAssessment(&b, report.Assessment)

	if p := report.PredictionResult; p != nil {
		b.WriteString("\nPrice Prediction\n")
		fmt.Fprintf(&b, "  Scrap Price: %.2f\n", p.ScrapPrice)
		fmt.Fprintf(&b, "  Repair Cost: %.2f\n", p.RepairCost)
		fmt.Fprintf(&b, "  Final Amount: %.2f\n", p.FinalAmount)
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "Amount: %s\n", report.Amount)
	fmt.Fprintf(&b, "Payment Status: %s\n", report.PaymentStatus)
	fmt.Fprintf(&b, "Collection Status: %s\n", report.CollectionStatus)
	return b.String()
}

func renderAssessment(b *strings.Builder, a *models.Assessment) {
	if a == nil {
		b.WriteString("\nAssessment: none recorded\n")
		return
	}
	switch a.Kind {
	case models.AssessmentVerification:
		b.WriteString("\nVerification Responses\n")
		for _, q := range orderedQuestions(a.Responses) {
			fmt.Fprintf(b, "  %s: %s\n", q, a.Responses[q])
		}
	case models.AssessmentAppliance:
		b.WriteString("\nAppliance Assessment\n")
		if a.Appliance == nil {
			return
		}
		ap := a.Appliance
		fmt.Fprintf(b, "  Item Type: %s\n", ap.ItemType)
		fmt.Fprintf(b, "  Brand: %s\n", ap.Brand)
		fmt.Fprintf(b, "  Age: %s\n", formatOptional(ap.Age))
		fmt.Fprintf(b, "  Condition: %s\n", ap.Condition)
		fmt.Fprintf(b, "  Weight: %s\n", formatOptional(ap.Weight))
		fmt.Fprintf(b, "  Material Composition: %s\n", ap.MaterialComposition.String())
		fmt.Fprintf(b, "  Battery Included: %s\n", ap.BatteryIncluded)
		fmt.Fprintf(b, "  Visible Damage: %s\n", ap.VisibleDamage)
		fmt.Fprintf(b, "  Screen Condition: %s\n", ap.ScreenCondition)
		fmt.Fprintf(b, "  Rust Presence: %s\n", ap.RustPresence)
		fmt.Fprintf(b, "  Wiring Condition: %s\n", ap.WiringCondition)
		fmt.Fprintf(b, "  Resale Potential: %s\n", ap.ResalePotential)
	default:
		fmt.Fprintf(b, "\nAssessment: unsupported kind %q\n", a.Kind)
	}
}

// orderedQuestions lists the default questions first, in form order, then any others sorted.
func orderedQuestions(responses map[string]string) []string {
	out := make([]string, 0, len(responses))
	seen := make(map[string]bool, len(responses))
	for _, q := range models.DefaultVerificationQuestions {
		if _, ok := responses[q]; ok {
			out = append(out, q)
			seen[q] = true
		}
	}
	var rest []string
	for q := range responses {
		if !seen[q] {
			rest = append(rest, q)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func formatOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}
