// Package vcf reads bubble descriptors from VCF records carrying allele
// traversals in the AT INFO field.
package vcf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/DrSkyle/bubblescope/pkg/bubble"
	"github.com/DrSkyle/bubblescope/pkg/providers"
)

// ErrMissingField is returned for records without an ID or an AT field.
var ErrMissingField = errors.New("missing required VCF field")

const (
	colChrom = 0
	colPos   = 1
	colID    = 2
	colInfo  = 7
)

// LoadFile reads the VCF at path; `.gz` and bgzipped content is decompressed.
func LoadFile(ctx context.Context, path string) ([]*bubble.Descriptor, error) {
	rc, err := providers.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	out, err := Load(ctx, rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// Load parses every data record into a descriptor, in file order.
func Load(ctx context.Context, r io.Reader) ([]*bubble.Descriptor, error) {
	var out []*bubble.Descriptor

	sc := providers.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if lineNo%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		d, err := ParseRecord(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		out = append(out, d)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
	}
	return out, nil
}

// ParseRecord parses one tab separated VCF data line.
func ParseRecord(line string) (*bubble.Descriptor, error) {
	fields := strings.Split(line, "\t")
	if len(fields) <= colInfo {
		return nil, fmt.Errorf("expected at least %d columns, got %d", colInfo+1, len(fields))
	}

	pos, err := strconv.Atoi(fields[colPos])
	if err != nil || pos < 1 {
		return nil, fmt.Errorf("invalid POS %q", fields[colPos])
	}

	// Multiple IDs are ';' separated; the first names the bubble.
	id, _, _ := strings.Cut(fields[colID], ";")
	if id == "" || id == "." {
		return nil, fmt.Errorf("%w: ID", ErrMissingField)
	}

	at, ok := infoValue(fields[colInfo], "AT")
	if !ok || at == "" || at == "." {
		return nil, fmt.Errorf("%w: INFO/AT for %s", ErrMissingField, id)
	}

	d := &bubble.Descriptor{ID: id, Chrom: fields[colChrom], Pos: pos}
	for _, s := range strings.Split(at, ",") {
		t, err := bubble.ParseTraversal(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}
		d.Traversals = append(d.Traversals, t)
	}
	return d, nil
}

func infoValue(info, key string) (string, bool) {
	for _, kv := range strings.Split(info, ";") {
		k, v, _ := strings.Cut(kv, "=")
		if k == key {
			return v, true
		}
	}
	return "", false
}
