package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/finagent/finagent/internal/core/ports"
	"github.com/shopspring/decimal"
)

// buildCategorizePrompt renders the single-transaction categorization prompt.
// The taxonomy and the transaction are embedded as JSON so the prompt stays
// stable across formatting changes.
func buildCategorizePrompt(req ports.CategorizeRequest) (string, error) {
	taxonomyJSON, err := json.MarshalIndent(req.Taxonomy, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render taxonomy for prompt: %w", err)
	}

	txn := req.Transaction
	amount := decimal.New(txn.AmountCents, -2)

	var b strings.Builder
	b.WriteString("You are a personal-finance transaction categorizer (prompt ")
	b.WriteString(req.PromptVersion)
	b.WriteString(").\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Assign the single best category key from the taxonomy below to the transaction.\n")
	b.WriteString("- Only keys present in the taxonomy are valid. Prefer a child key; use a parent key only when no child fits.\n")
	b.WriteString("- If, after reflection, you would change your first answer, keep the first answer in category_key and put the better one in revised_category_key with revised_confidence and revised_rationale.\n")
	b.WriteString("- If you used web search to identify the merchant, set used_web_search to true and describe the merchant in merchant_summary.\n\n")
	b.WriteString("Taxonomy:\n")
	b.Write(taxonomyJSON)
	b.WriteString("\n\nTransaction:\n")
	fmt.Fprintf(&b, "- descriptor: %q\n", txn.Descriptor)
	fmt.Fprintf(&b, "- amount: %s %s\n", amount.StringFixed(2), txn.Currency)
	fmt.Fprintf(&b, "- posted_at: %s\n", txn.PostedAt.UTC().Format("2006-01-02"))
	fmt.Fprintf(&b, "- source: %s\n", txn.Source)
	fmt.Fprintf(&b, "- institution: %q\n", txn.Institution)
	if txn.Subtype != "" {
		fmt.Fprintf(&b, "- subtype: %s\n", txn.Subtype)
	}
	b.WriteString("\nReturn ONLY a raw JSON object, no code fences, with fields:\n")
	b.WriteString(`{"category_key": string, "confidence": number 0..1, "rationale": string, ` +
		`"revised_category_key": string or null, "revised_confidence": number or null, ` +
		`"revised_rationale": string or null, "used_web_search": boolean, "merchant_summary": string or null}` + "\n")
	return b.String(), nil
}
