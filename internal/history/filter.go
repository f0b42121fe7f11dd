package history

import "strings"

// Filter trims conversation items before a turn runs. It returns the kept
// items and the number removed.
type Filter interface {
	Filter(items []Item) ([]Item, int)
}

// DefaultFilter keeps message items that carry at least one non-blank text
// block and drops system messages along with every non-message item.
type DefaultFilter struct{}

func (DefaultFilter) Filter(items []Item) ([]Item, int) {
	kept := make([]Item, 0, len(items))
	removed := 0
	for _, item := range items {
		if item.Type != ItemTypeMessage || item.Role == RoleSystem || !hasVisibleText(item) {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	return kept, removed
}

func hasVisibleText(item Item) bool {
	for _, block := range item.Content {
		if strings.TrimSpace(block.Text) != "" {
			return true
		}
	}
	return false
}
