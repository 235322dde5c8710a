// Package storage persists expansion runs. A run records when it happened
// and what it was expanded from; its rows are stored under the run's ULID
// and addressed by combined id.
package storage

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dqvis/udigen/udi"
)

// Run describes one stored expansion.
type Run struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Templates string    `json:"templates,omitempty"`
	Schemas   string    `json:"schemas,omitempty"`
	Rows      int       `json:"rows"`
	Errors    int       `json:"errors,omitempty"`
}

// Store is the interface for run storage
type Store interface {
	// SaveRun stores rows as a new run and returns the run with its id set.
	SaveRun(run Run, rows []udi.ExpandedRow) (Run, error)
	// Runs lists stored runs, oldest first.
	Runs() ([]Run, error)
	// Run returns a single run, or nil if it does not exist.
	Run(id string) (*Run, error)
	// Rows returns the rows of a run in (template_id, expanded_id) order.
	Rows(runID string) ([]udi.ExpandedRow, error)
	// Row returns a single row by combined id, or nil if it does not exist.
	Row(runID, combinedID string) (*udi.ExpandedRow, error)
	// DeleteRun removes a run and its rows.
	DeleteRun(id string) error

	Close() error
}

// Key layout:
//
//	r/<run id>                             run record
//	w/<run id>/<template id><expanded id>  row, ids as big-endian uint32
const (
	runPrefix = "r/"
	rowPrefix = "w/"
)

func runKey(id string) []byte {
	return []byte(runPrefix + id)
}

func rowsPrefix(runID string) []byte {
	return []byte(rowPrefix + runID + "/")
}

func rowKey(runID string, templateID, expandedID int) []byte {
	key := rowsPrefix(runID)
	key = binary.BigEndian.AppendUint32(key, uint32(templateID))
	return binary.BigEndian.AppendUint32(key, uint32(expandedID))
}

// ParseCombinedID splits a combined id into its template and expanded ids.
func ParseCombinedID(id string) (templateID, expandedID int, err error) {
	parts := strings.Split(id, "_")
	if len(parts) != 3 {
		return 0, 0, fmt.Errorf("invalid combined id %q", id)
	}
	ids := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, 0, fmt.Errorf("invalid combined id %q", id)
		}
		ids[i] = n
	}
	return ids[0], ids[1], nil
}
