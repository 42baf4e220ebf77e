package leads

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	pkgerrors "github.com/angelmondragon/quizfunnel-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupLeadsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`
CREATE TABLE leads (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  name TEXT,
  quiz_data TEXT NOT NULL,
  plan_data TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)
	return db
}

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(setupLeadsTestDB(t)), nil)
	require.NoError(t, err)
	return svc
}

func TestServiceCreateAndGet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{
		Email:    "  Jane@Example.com ",
		Name:     "Jane",
		QuizData: json.RawMessage(`{"answers":[1,2,3]}`),
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "jane@example.com", created.Email)
	require.NotNil(t, created.Name)
	assert.Equal(t, "Jane", *created.Name)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.JSONEq(t, `{"answers":[1,2,3]}`, string(got.QuizData))
	assert.Nil(t, got.PlanData)
}

func TestServiceCreateRejectsInvalidInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Email: "not-an-email", QuizData: json.RawMessage(`{}`)})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Create(ctx, CreateInput{Email: "a@example.com", QuizData: json.RawMessage(`{broken`)})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Create(ctx, CreateInput{Email: "a@example.com"})
	require.Error(t, err)
}

func TestServiceGetMissingLead(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Get(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestServiceAttachPlan(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{Email: "b@example.com", QuizData: json.RawMessage(`{"q":1}`)})
	require.NoError(t, err)

	require.NoError(t, svc.AttachPlan(ctx, created.ID, json.RawMessage(`{"profileType":"Sprinter"}`)))

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"profileType":"Sprinter"}`, string(got.PlanData))

	err = svc.AttachPlan(ctx, uuid.New(), json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	err = svc.AttachPlan(ctx, created.ID, json.RawMessage(`nope`))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
