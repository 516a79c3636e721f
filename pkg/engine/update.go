package engine

import (
	"context"

	"github.com/accented-ai/quadsparql/internal/logging"
	"github.com/accented-ai/quadsparql/internal/sparqlparse"
)

// ExecuteUpdate parses and runs a SPARQL 1.1 Update request against
// spaceID; every top-level operation in the request runs inside one
// transaction (internal/updateplan).
func (e *Engine) ExecuteUpdate(ctx context.Context, spaceID, update string) error {
	h, err := e.handle(spaceID)
	if err != nil {
		return err
	}

	ops, err := sparqlparse.ParseUpdate(update)
	if err != nil {
		return err
	}

	e.recordPrefixes(ctx, h, update)

	for _, op := range ops {
		if op.Where != nil {
			logging.LogAlgebra(e.log, "update", op.Where)
		}
	}

	return h.planner.Execute(ctx, ops)
}
