// Package merge folds duplicate rows of a batch by conflict key and writes
// them to the row store in bounded chunks.
package merge

import (
	"context"
	"fmt"
	"strings"

	"subsea_intel/pkg/core/store"
	"subsea_intel/pkg/logger"
)

// ChunkSize bounds the number of rows per upsert call.
const ChunkSize = 500

const keySep = "||"

// Result counts source rows written and skipped.
type Result struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

func (r *Result) Add(o Result) {
	r.Imported += o.Imported
	r.Skipped += o.Skipped
}

// Key joins the conflict column values of a row.
func Key(row store.Row, conflictColumns []string) string {
	parts := make([]string, len(conflictColumns))
	for i, c := range conflictColumns {
		if v := row[c]; v != nil {
			parts[i] = fmt.Sprint(v)
		}
	}
	return strings.Join(parts, keySep)
}

type merged struct {
	row    store.Row
	weight int
}

// Dedupe merges rows sharing a conflict key. The first occurrence seeds the
// record; later ones add into numeric fields both sides hold as numbers and
// overwrite every other non-nil field. Conflict columns are never summed.
// Output order follows first occurrence.
func Dedupe(rows []store.Row, conflictColumns []string) ([]store.Row, []int) {
	isKey := make(map[string]bool, len(conflictColumns))
	for _, c := range conflictColumns {
		isKey[c] = true
	}

	index := map[string]int{}
	var out []merged
	for _, r := range rows {
		k := Key(r, conflictColumns)
		i, seen := index[k]
		if !seen {
			index[k] = len(out)
			out = append(out, merged{row: r.Clone(), weight: 1})
			continue
		}
		m := out[i].row
		for col, v := range r {
			if v == nil {
				continue
			}
			if !isKey[col] {
				if cur, ok := store.Numeric(m[col]); ok {
					if add, ok := store.Numeric(v); ok {
						m[col] = cur + add
						continue
					}
				}
			}
			m[col] = v
		}
		out[i].weight++
	}

	rowsOut := make([]store.Row, len(out))
	weights := make([]int, len(out))
	for i, m := range out {
		rowsOut[i] = m.row
		weights[i] = m.weight
	}
	return rowsOut, weights
}

// Engine writes merged batches to a RowStore.
type Engine struct {
	store     store.RowStore
	log       *logger.Logger
	chunkSize int
}

func NewEngine(s store.RowStore, log *logger.Logger) *Engine {
	return &Engine{store: s, log: logger.OrNop(log), chunkSize: ChunkSize}
}

// WithChunkSize overrides ChunkSize, mainly for tests.
func (e *Engine) WithChunkSize(n int) *Engine {
	if n > 0 {
		e.chunkSize = n
	}
	return e
}

// echoedSourceRows converts a store's echoed row count for a merged chunk
// into source rows. A store that echoes nothing is taken to have written the
// whole chunk; a partial echo is scaled by the chunk's fold ratio.
func echoedSourceRows(echoed, merged, sourceRows int) int {
	if echoed <= 0 || echoed >= merged {
		return sourceRows
	}
	return echoed * sourceRows / merged
}

// UpsertChunked dedupes the whole batch, then upserts it chunk by chunk. A
// failing chunk counts its source rows as skipped and the next chunk is
// still attempted. Counts are in source rows, so a chunk that folded three
// rows into one reports three.
func (e *Engine) UpsertChunked(ctx context.Context, table string, rows []store.Row, conflictColumns []string) Result {
	var res Result
	if len(rows) == 0 {
		return res
	}
	deduped, weights := Dedupe(rows, conflictColumns)

	for start := 0; start < len(deduped); start += e.chunkSize {
		end := start + e.chunkSize
		if end > len(deduped) {
			end = len(deduped)
		}
		chunk := deduped[start:end]
		sourceRows := 0
		for _, w := range weights[start:end] {
			sourceRows += w
		}

		if err := ctx.Err(); err != nil {
			res.Skipped += sourceRows
			continue
		}

		n, err := e.store.Upsert(ctx, table, chunk, conflictColumns)
		if err != nil {
			e.log.Warn("chunk upsert failed", "table", table, "offset", start, "rows", len(chunk), "error", err)
			res.Skipped += sourceRows
			continue
		}
		res.Imported += echoedSourceRows(n, len(chunk), sourceRows)
	}
	e.log.Info("upsert complete", "table", table, "rows", len(rows), "merged", len(deduped), "imported", res.Imported, "skipped", res.Skipped)
	return res
}
