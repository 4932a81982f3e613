package ops

import (
	"context"
	"testing"

	"github.com/google/uuid"

	dbpkg "github.com/yungbote/eduvideo-backend/internal/data/db"
	"github.com/yungbote/eduvideo-backend/internal/data/repos/testutil"
	types "github.com/yungbote/eduvideo-backend/internal/domain"
	opsdomain "github.com/yungbote/eduvideo-backend/internal/domain/ops"
	"github.com/yungbote/eduvideo-backend/internal/platform/dbctx"
)

func TestCallbackReceiptUniqueKey(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewCallbackReceiptRepo(db, testutil.Logger(t))

	entity := uuid.New()
	r := &types.CallbackReceipt{Scope: opsdomain.ScopeSourceSetCallback, EntityID: entity, RequestKey: "k1", Outcome: opsdomain.ReceiptApplied}
	if err := repo.Create(dbc, r); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := repo.Create(dbc, &types.CallbackReceipt{Scope: opsdomain.ScopeSourceSetCallback, EntityID: entity, RequestKey: "k1", Outcome: opsdomain.ReceiptApplied})
	if !dbpkg.IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
	got, err := repo.Get(dbc, opsdomain.ScopeSourceSetCallback, entity, "k1")
	if err != nil || got == nil || got.ID != r.ID {
		t.Fatalf("get: %+v %v", got, err)
	}
	if miss, _ := repo.Get(dbc, opsdomain.ScopeRenderCallback, entity, "k1"); miss != nil {
		t.Fatalf("scope must be part of the key")
	}
}

func TestDispatchTaskStatusGuard(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewDispatchTaskRepo(db, testutil.Logger(t))

	task := &types.DispatchTask{Kind: opsdomain.DispatchRenderJob, EntityID: uuid.New(), RequestID: uuid.New(), Status: opsdomain.DispatchDead}
	if err := repo.Create(dbc, task); err != nil {
		t.Fatalf("create: %v", err)
	}
	dead, err := repo.ListByStatus(dbc, opsdomain.DispatchDead, 10)
	if err != nil || len(dead) != 1 {
		t.Fatalf("dead: %v %v", dead, err)
	}
	ok, err := repo.UpdateFieldsIfStatus(dbc, task.ID, opsdomain.DispatchSent, map[string]interface{}{"status": opsdomain.DispatchPending})
	if err != nil || ok {
		t.Fatalf("guard: %v %v", ok, err)
	}
	ok, err = repo.UpdateFieldsIfStatus(dbc, task.ID, opsdomain.DispatchDead, map[string]interface{}{"status": opsdomain.DispatchPending})
	if err != nil || !ok {
		t.Fatalf("revive: %v %v", ok, err)
	}
}
