package feed

import (
	"bytes"
	"fmt"

	"github.com/mmcdole/gofeed"
)

// Validator reads a generated document back the way a feed reader would.
type Validator struct {
	gofeedParser *gofeed.Parser
}

func NewValidator() *Validator {
	return &Validator{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run checks that data is an Atom feed carrying exactly expectedEntries
// entries, each with an id and a link.
func (v *Validator) Run(data []byte, expectedEntries int) error {
	parsed, err := v.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to parse generated feed: %w", err)
	}

	if parsed.FeedType != "atom" {
		return fmt.Errorf("generated feed has type %q, expected atom", parsed.FeedType)
	}

	if len(parsed.Items) != expectedEntries {
		return fmt.Errorf("generated feed has %d entries, expected %d", len(parsed.Items), expectedEntries)
	}

	for i, item := range parsed.Items {
		if item.GUID == "" {
			return fmt.Errorf("entry %d has no id", i)
		}
		if item.Link == "" {
			return fmt.Errorf("entry %d has no link", i)
		}
	}

	return nil
}
