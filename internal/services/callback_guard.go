package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	dbpkg "github.com/yungbote/eduvideo-backend/internal/data/db"
	"github.com/yungbote/eduvideo-backend/internal/data/repos"
	types "github.com/yungbote/eduvideo-backend/internal/domain"
	"github.com/yungbote/eduvideo-backend/internal/observability"
	"github.com/yungbote/eduvideo-backend/internal/platform/dbctx"
	"github.com/yungbote/eduvideo-backend/internal/platform/entitylock"
)

// callbackGuard makes inbound callbacks exactly-once: one holder per entity at
// a time, and a receipt row per request key written in the same transaction
// as the callback's effects.
type callbackGuard struct {
	db       *gorm.DB
	receipts repos.CallbackReceiptRepo
	locker   entitylock.Locker
}

// callbackKey hashes the sender's request id with the canonical JSON of the payload.
func callbackKey(requestID string, payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(requestID))
	h.Write([]byte{0})
	h.Write(raw)
	return hex.EncodeToString(h.Sum(nil)), nil
}

type callbackOutcome[T any] struct {
	Result   T
	Outcome  string
	Replayed bool
}

// runCallback executes apply at most once per (scope, entityID, keyFn(tx)).
// keyFn runs under the entity lock so it may read entity state.
func runCallback[T any](
	g *callbackGuard,
	dbc dbctx.Context,
	scope string,
	entityID uuid.UUID,
	keyFn func(tx *gorm.DB) (string, error),
	apply func(tx *gorm.DB) (T, string, error),
) (callbackOutcome[T], error) {
	var out callbackOutcome[T]

	unlock, err := g.locker.Lock(dbc.Ctx, entitylock.Key(scope, entityID.String()))
	if err != nil {
		return out, fmt.Errorf("acquire %s lock: %w", scope, err)
	}
	defer unlock()

	var key string
	txErr := g.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		k, kErr := keyFn(tx)
		if kErr != nil {
			return kErr
		}
		key = k
		prior, err := g.receipts.Get(inner, scope, entityID, key)
		if err != nil {
			return err
		}
		if prior != nil {
			out.Replayed = true
			out.Outcome = prior.Outcome
			return json.Unmarshal(prior.Response, &out.Result)
		}

		res, outcome, err := apply(tx)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(res)
		if err != nil {
			return err
		}
		out.Result = res
		out.Outcome = outcome
		return g.receipts.Create(inner, &types.CallbackReceipt{
			Scope:      scope,
			EntityID:   entityID,
			RequestKey: key,
			Outcome:    outcome,
			Response:   datatypes.JSON(raw),
		})
	})
	if txErr == nil {
		outcome := out.Outcome
		if out.Replayed {
			outcome = "duplicate"
		}
		observability.Current().IncCallback(scope, outcome)
		return out, nil
	}
	if key != "" && dbpkg.IsUniqueViolation(txErr) {
		// Another replica applied the same callback first.
		prior, err := g.receipts.Get(dbctx.Context{Ctx: dbc.Ctx}, scope, entityID, key)
		if err == nil && prior != nil {
			var replay callbackOutcome[T]
			replay.Replayed = true
			replay.Outcome = prior.Outcome
			if err := json.Unmarshal(prior.Response, &replay.Result); err == nil {
				observability.Current().IncCallback(scope, "duplicate")
				return replay, nil
			}
		}
	}
	return callbackOutcome[T]{}, txErr
}
