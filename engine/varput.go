package engine

import (
	"fmt"

	"github.com/embeddb/embeddb-go/errs"
	"github.com/embeddb/embeddb-go/internal/ringfile"
	"github.com/embeddb/embeddb-go/varstore"
)

// varReclaim is VarStore's ReclaimFunc: on reclaim of one erase block
// of var pages, read the last page about to be overwritten, extract
// its max-key, and set min_var_record_id = that_max_key + 1 (spec
// §4.10), so Get can detect an overwritten variable payload (P7).
func (e *Engine[K]) varReclaim(blockStartID int64, eraseSize int64) error {
	lastID := blockStartID + eraseSize - 1
	maxKeyBytes, err := e.vs.MaxKeyOnPage(lastID)
	if err != nil {
		return err
	}
	maxKey := bytesToKey[K](maxKeyBytes)
	e.vs.MinVarRecordID = uint64(maxKey) + 1
	return nil
}

// putVarPayload implements spec §4.6: write the length prefix and
// payload bytes into VarStore, returning the var_ptr to stamp on the
// fixed record, or NO_VAR_DATA if there is no variable payload.
func (e *Engine[K]) putVarPayload(key K, variableData *[]byte) (uint32, error) {
	if variableData == nil {
		return varstore.NoVarData, nil
	}

	keyToBytes(key, e.layout.KeySize, e.varWriteKey)
	payload := *variableData

	addr, err := e.vs.WriteLength(e.varWriteKey, uint32(len(payload)), ringfile.ReclaimFunc(e.varReclaim))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errs.ErrIOFail, err)
	}
	if err := e.vs.WriteBytes(e.varWriteKey, payload, ringfile.ReclaimFunc(e.varReclaim)); err != nil {
		return 0, fmt.Errorf("%w: %v", errs.ErrIOFail, err)
	}

	span := uint64(e.opts.NumVarPages) * uint64(e.opts.PageSize)
	return uint32(addr % span), nil
}
