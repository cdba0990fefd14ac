package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Format is the on-disk encoding of a Record
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat maps a format name to a Format
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown metadata format %q", s)
	}
}

// FileName returns the metadata file name for the format
func (f Format) FileName() string {
	switch f {
	case FormatJSON:
		return "info.json"
	case FormatYAML:
		return "info.yaml"
	default:
		return "info.txt"
	}
}

// Record represents the metadata scraped from one listing page.
// Optional fields are nil when their pattern did not match.
type Record struct {
	// Run identity
	URL       string    `json:"url" yaml:"url"`
	Site      string    `json:"site" yaml:"site"`
	RunID     string    `json:"run_id" yaml:"run_id"`
	ScrapedAt time.Time `json:"scraped_at" yaml:"scraped_at"`

	// Listing content
	Description *string `json:"description,omitempty" yaml:"description,omitempty"`
	Street      *string `json:"street,omitempty" yaml:"street,omitempty"`
	City        *string `json:"city,omitempty" yaml:"city,omitempty"`
	State       *string `json:"state,omitempty" yaml:"state,omitempty"`
	Zip         *string `json:"zip,omitempty" yaml:"zip,omitempty"`
	ListingID   *string `json:"listing_id,omitempty" yaml:"listing_id,omitempty"`
	Price       *string `json:"price,omitempty" yaml:"price,omitempty"`

	ImageCount int `json:"image_count" yaml:"image_count"`
}

// NewRecord creates a record stamped with a fresh run id
func NewRecord(url, site string, imageCount int) *Record {
	return &Record{
		URL:        url,
		Site:       site,
		RunID:      uuid.NewString(),
		ScrapedAt:  time.Now().UTC(),
		ImageCount: imageCount,
	}
}

// HasAddress reports whether the composite address was captured
func (r *Record) HasAddress() bool {
	return r.Street != nil && r.City != nil && r.State != nil && r.Zip != nil && r.ListingID != nil
}

// Encode serializes the record in the given format
func (r *Record) Encode(format Format) ([]byte, error) {
	switch format {
	case FormatText, "":
		return r.encodeText(), nil
	case FormatJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		data, err := yaml.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unknown metadata format %q", format)
	}
}

func (r *Record) encodeText() []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "URL: %s\n\n", r.URL)
	if r.Description != nil {
		fmt.Fprintf(&b, "Info: %s\n\n", *r.Description)
	}
	if r.HasAddress() {
		fmt.Fprintf(&b, "Street: %s\nCity: %s\nState: %s\nZip: %s\nListing ID: %s\n\n",
			*r.Street, *r.City, *r.State, *r.Zip, *r.ListingID)
	}
	if r.Price != nil {
		fmt.Fprintf(&b, "Price: %s\n\n", *r.Price)
	}
	b.WriteString("Number of unique images found: " + strconv.Itoa(r.ImageCount))

	return []byte(b.String())
}

// Load reads a JSON or YAML record back from disk, picking the decoder by extension
func Load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var rec Record
	switch filepath.Ext(path) {
	case ".json":
		err = json.Unmarshal(data, &rec)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &rec)
	default:
		return nil, fmt.Errorf("cannot decode metadata file %s", filepath.Base(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	return &rec, nil
}

// GetFormattedDescription returns the description on one line, cut to at most
// maxLength characters for display
func (r *Record) GetFormattedDescription(maxLength int) string {
	if r.Description == nil || *r.Description == "" {
		return ""
	}

	desc := []rune(strings.Join(strings.Fields(*r.Description), " "))
	if maxLength > 3 && len(desc) > maxLength {
		return string(desc[:maxLength-3]) + "..."
	}

	return string(desc)
}
