package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mkarpenko/invoice-extract/internal/core/domain"
	"github.com/mkarpenko/invoice-extract/internal/core/extract"
)

// LoadAnchors reads extra label phrases from a YAML file keyed by field kind,
// e.g.
//
//	invoice_number:
//	  - "rechnung nr"
//	due_date:
//	  - "zahlbar bis"
//
// Only label-anchored kinds accept phrases; naming any other field is a
// startup error so a typo cannot silently drop a whole anchor set. An empty
// path means no overlay.
func LoadAnchors(path string) (map[domain.FieldKind][]string, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read anchors file: %w", err)
	}

	var doc map[string][]string
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse anchors file %s: %w", path, err)
	}

	allowed := make(map[domain.FieldKind]struct{})
	for _, kind := range extract.AnchoredFieldKinds() {
		allowed[kind] = struct{}{}
	}

	anchors := make(map[domain.FieldKind][]string, len(doc))
	for key, phrases := range doc {
		kind := domain.FieldKind(key)
		if _, ok := allowed[kind]; !ok {
			return nil, fmt.Errorf("anchors file %s: field %q does not take label anchors", path, key)
		}
		for _, phrase := range phrases {
			phrase = strings.TrimSpace(phrase)
			if phrase == "" {
				return nil, fmt.Errorf("anchors file %s: empty phrase under %q", path, key)
			}
			anchors[kind] = append(anchors[kind], phrase)
		}
	}
	return anchors, nil
}
