// Package asn builds level-3 association documents from member exposure
// lists, the association-from-list pattern used to feed level-3 pipeline
// stages.
package asn

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/astroshed/spex/internal/slug"
)

// Defaults for associations produced from a bare member list.
const (
	DefaultRule = "DMS_Level3_Base"
	DefaultType = "spec3"
)

// Exposure types recognized for members.
const (
	ExpTypeScience    = "science"
	ExpTypeBackground = "background"
)

// Member is one exposure within an association product.
type Member struct {
	ExpName string `json:"expname"`
	ExpType string `json:"exptype"`
}

// Product groups the members that are combined into one output product.
type Product struct {
	Name    string   `json:"name"`
	Members []Member `json:"members"`
}

// Association is a serializable level-3 association document.
type Association struct {
	AsnType  string    `json:"asn_type"`
	AsnRule  string    `json:"asn_rule"`
	Products []Product `json:"products"`
}

// Option adjusts an association built by FromList.
type Option func(*Association)

// WithRule overrides the association rule name.
func WithRule(rule string) Option {
	return func(a *Association) { a.AsnRule = rule }
}

// WithType overrides the association type.
func WithType(asnType string) Option {
	return func(a *Association) { a.AsnType = asnType }
}

// WithBackground appends background-typed members to the product.
func WithBackground(expnames ...string) Option {
	return func(a *Association) {
		for _, name := range expnames {
			a.Products[0].Members = append(a.Products[0].Members, Member{
				ExpName: name,
				ExpType: ExpTypeBackground,
			})
		}
	}
}

// FromList builds an association with a single product named after
// productName, holding one science member per listed exposure.
func FromList(productName string, expnames []string, opts ...Option) (*Association, error) {
	if productName == "" {
		return nil, errors.New("association product needs a name")
	}
	if len(expnames) == 0 {
		return nil, errors.New("association needs at least one member exposure")
	}

	members := make([]Member, len(expnames))
	for i, name := range expnames {
		if name == "" {
			return nil, fmt.Errorf("member %d has an empty exposure name", i)
		}
		members[i] = Member{ExpName: name, ExpType: ExpTypeScience}
	}

	a := &Association{
		AsnType: DefaultType,
		AsnRule: DefaultRule,
		Products: []Product{{
			Name:    productName,
			Members: members,
		}},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// DefaultFilename derives the association filename from the product name.
func (a *Association) DefaultFilename() string {
	return slug.Make(a.Products[0].Name) + "_asn.json"
}

// MemberCount returns the total number of members across products.
func (a *Association) MemberCount() int {
	n := 0
	for _, p := range a.Products {
		n += len(p.Members)
	}
	return n
}

// Save writes the association document to path as indented JSON.
func (a *Association) Save(path string) error {
	raw, err := json.MarshalIndent(a, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding association: %w", err)
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing association: %w", err)
	}
	return nil
}
