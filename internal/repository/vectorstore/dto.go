package vectorstore

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/kailas-cloud/modalsearch/internal/domain/content"
)

// Hash field names. Every content item is one HASH under <prefix>content:<id>.
const (
	fieldType        = "type"
	fieldData        = "data"
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldTags        = "tags"
	fieldSource      = "source"
	fieldExtra       = "extra"
	fieldCreatedAt   = "created_at"
	fieldVector      = "vector"
)

var metadataFields = []string{
	fieldType, fieldData, fieldTitle, fieldDescription, fieldTags, fieldSource, fieldExtra, fieldCreatedAt,
}

// tagSeparator joins tags in the TAG field; commas inside a tag are replaced.
const tagSeparator = ","

func toHash(e content.Embedding) (map[string]string, error) {
	m := map[string]string{
		fieldType:        string(e.Type),
		fieldData:        e.Data,
		fieldTitle:       e.Metadata.Title,
		fieldDescription: e.Metadata.Description,
		fieldSource:      e.Metadata.Source,
		fieldVector:      vectorToBytes(e.Vector),
	}

	if !e.CreatedAt.IsZero() {
		m[fieldCreatedAt] = strconv.FormatInt(e.CreatedAt.UnixMilli(), 10)
	}

	tags := make([]string, 0, len(e.Metadata.Tags))
	for _, t := range e.Metadata.Tags {
		tags = append(tags, strings.ReplaceAll(t, tagSeparator, " "))
	}
	m[fieldTags] = strings.Join(tags, tagSeparator)

	if len(e.Metadata.Extra) > 0 {
		raw, err := json.Marshal(e.Metadata.Extra)
		if err != nil {
			return nil, fmt.Errorf("marshal extra: %w", err)
		}
		m[fieldExtra] = string(raw)
	}
	return m, nil
}

// fromHash rebuilds an embedding. Fields written by other tools may be loosely
// typed, so numeric and map values go through cast.
func fromHash(id string, m map[string]string) (content.Embedding, error) {
	t, err := content.ParseType(m[fieldType])
	if err != nil {
		return content.Embedding{}, fmt.Errorf("content %s: %w", id, err)
	}

	e := content.Embedding{
		ID:       id,
		Type:     t,
		Data:     m[fieldData],
		Metadata: metadataFromHash(m),
	}
	if raw, ok := m[fieldVector]; ok {
		if e.Vector, err = bytesToVector(raw); err != nil {
			return content.Embedding{}, fmt.Errorf("content %s: %w", id, err)
		}
	}
	if raw := m[fieldCreatedAt]; raw != "" {
		ms, err := cast.ToInt64E(raw)
		if err != nil {
			return content.Embedding{}, fmt.Errorf("content %s: created_at: %w", id, err)
		}
		e.CreatedAt = time.UnixMilli(ms).UTC()
	}
	return e, nil
}

func metadataFromHash(m map[string]string) content.Metadata {
	md := content.Metadata{
		Title:       m[fieldTitle],
		Description: m[fieldDescription],
		Source:      m[fieldSource],
		Tags:        []string{},
	}
	if raw := m[fieldTags]; raw != "" {
		md.Tags = strings.Split(raw, tagSeparator)
	}
	if raw := m[fieldExtra]; raw != "" {
		if extra, err := cast.ToStringMapStringE(raw); err == nil && len(extra) > 0 {
			md.Extra = extra
		}
	}
	return md
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

func bytesToVector(s string) ([]float32, error) {
	if len(s)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(s))
	}
	v := make([]float32, len(s)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32([]byte(s[i*4 : i*4+4])))
	}
	return v, nil
}
