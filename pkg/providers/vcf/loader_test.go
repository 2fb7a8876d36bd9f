package vcf

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrSkyle/bubblescope/pkg/bubble"
)

const sample = `##fileformat=VCFv4.2
##INFO=<ID=AT,Number=R,Type=String,Description="Allele Traversal as path in graph">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO
chr1	1000	>1>4	A	AT,ATT	60	PASS	AT=>1>2>4,>1>3>4,>1>3>5>4;NS=1
chr1	2000	>4<7;alias	G	C	.	.	DP=3;AT=>4>5>7,>4<6>7
`

func TestLoad(t *testing.T) {
	got, err := Load(context.Background(), strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, ">1>4", first.ID)
	assert.Equal(t, "chr1", first.Chrom)
	assert.Equal(t, 1000, first.Pos)
	require.Len(t, first.Traversals, 3)
	assert.Equal(t, []string{"1", "2", "4"}, first.Traversals[0].IDs())
	assert.Equal(t, []string{"1", "3", "5", "4"}, first.Traversals[2].IDs())

	second := got[1]
	assert.Equal(t, ">4<7", second.ID)
	assert.Equal(t, bubble.Reverse, second.Traversals[1].Steps[1].Dir)
	assert.Equal(t, ">4<6>7", second.Traversals[1].String())
}

func TestParseRecord_Errors(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		missing bool
	}{
		{name: "short", line: "chr1\t1\tv1"},
		{name: "bad pos", line: "chr1\tx\tv1\tA\tT\t.\t.\tAT=>1>2"},
		{name: "zero pos", line: "chr1\t0\tv1\tA\tT\t.\t.\tAT=>1>2"},
		{name: "no id", line: "chr1\t5\t.\tA\tT\t.\t.\tAT=>1>2", missing: true},
		{name: "no at", line: "chr1\t5\tv1\tA\tT\t.\t.\tDP=4", missing: true},
		{name: "empty at", line: "chr1\t5\tv1\tA\tT\t.\t.\tAT=", missing: true},
		{name: "bad traversal", line: "chr1\t5\tv1\tA\tT\t.\t.\tAT=>1>2,12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecord(tt.line)
			require.Error(t, err)
			if tt.missing {
				assert.ErrorIs(t, err, ErrMissingField)
			}
		})
	}

	_, err := ParseRecord("chr1\t5\tv1\tA\tT\t.\t.\tAT=>1>2,12")
	assert.ErrorIs(t, err, bubble.ErrInvalidTraversal)
}

func TestLoad_ReportsLine(t *testing.T) {
	_, err := Load(context.Background(), strings.NewReader("#h\nchr1\t1\t.\tA\tT\t.\t.\tAT=>1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.vcf")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	got, err := LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = LoadFile(context.Background(), filepath.Join(t.TempDir(), "nope.vcf"))
	assert.Error(t, err)
}
