package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeBuilder/internal/assist"
	"resumeBuilder/internal/errcode"
	"resumeBuilder/internal/resume"
	"resumeBuilder/internal/store"
)

type stubGenerator struct {
	lines []string
	err   error
	kinds []assist.Kind
}

func (g *stubGenerator) GenerateText(_ context.Context, kind assist.Kind, _ string) ([]string, error) {
	g.kinds = append(g.kinds, kind)
	return g.lines, g.err
}

func TestDraft_EditValidateAndSave(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/v1/draft", "")
	requireStatus(t, w, http.StatusCreated)
	draft := decode[draftResponse](t, w)
	assert.Equal(t, resume.DefaultTitle, draft.Draft.Title)
	assert.Empty(t, draft.RemoteID)
	assert.False(t, draft.Dirty)

	// local edits accept invalid dates
	w = s.do(http.MethodPut, "/v1/draft", `{"title":"Mine","experience":[{"title":"Dev","startDate":"2024-05","endDate":"2023-01"}]}`)
	requireStatus(t, w, http.StatusOK)
	draft = decode[draftResponse](t, w)
	assert.True(t, draft.Dirty)
	assert.Equal(t, "Mine", draft.Draft.Title)
	require.NotEmpty(t, draft.Errors)

	w = s.do(http.MethodGet, "/v1/draft/validate", "")
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, true, decode[map[string]any](t, w)["blocking"])

	w = s.do(http.MethodPost, "/v1/draft/save?validate=true", "")
	requireStatus(t, w, http.StatusUnprocessableEntity)
	assert.Equal(t, float64(errcode.FieldValidation), decode[map[string]any](t, w)["code"])

	w = s.do(http.MethodPost, "/v1/draft/save", "")
	requireStatus(t, w, http.StatusCreated)
	saved := decode[saveResponse](t, w)
	assert.Equal(t, store.OutcomeCreated, saved.Outcome)
	assert.Equal(t, errcode.OK, saved.Code)
	assert.NotEmpty(t, saved.RemoteID)
	assert.Equal(t, saved.RemoteID, saved.Draft.ID)
	assert.False(t, saved.Dirty)

	w = s.do(http.MethodPut, "/v1/draft", `{"title":"Mine","experience":[{"title":"Dev","startDate":"2022-05","endDate":"2023-01"}]}`)
	requireStatus(t, w, http.StatusOK)
	w = s.do(http.MethodPost, "/v1/draft/save?validate=true", "")
	requireStatus(t, w, http.StatusOK)
	updated := decode[saveResponse](t, w)
	assert.Equal(t, store.OutcomeUpdated, updated.Outcome)
	assert.Equal(t, saved.RemoteID, updated.RemoteID)

	w = s.do(http.MethodGet, "/v1/resumes/"+saved.RemoteID, "")
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, "2022-05", decode[resumeEnvelope](t, w).Resume.Experience[0].StartDate)
}

func TestDraft_SaveRecreatesDeletedDocument(t *testing.T) {
	s := newTestServer(t)

	requireStatus(t, s.do(http.MethodPost, "/v1/draft", ""), http.StatusCreated)
	requireStatus(t, s.do(http.MethodPut, "/v1/draft", `{"title":"Kept"}`), http.StatusOK)
	w := s.do(http.MethodPost, "/v1/draft/save", "")
	requireStatus(t, w, http.StatusCreated)
	first := decode[saveResponse](t, w)

	require.NoError(t, s.gateway.Delete(context.Background(), "users/u1/resumes", first.RemoteID))

	requireStatus(t, s.do(http.MethodPut, "/v1/draft", `{"title":"Kept again"}`), http.StatusOK)
	w = s.do(http.MethodPost, "/v1/draft/save", "")
	requireStatus(t, w, http.StatusCreated)
	second := decode[saveResponse](t, w)
	assert.Equal(t, store.OutcomeRecreated, second.Outcome)
	assert.Equal(t, errcode.ConflictRecovered, second.Code)
	assert.Equal(t, first.RemoteID, second.PreviousID)
	assert.NotEqual(t, first.RemoteID, second.RemoteID)
	assert.Equal(t, "Kept again", second.Draft.Title)
}

func TestDraft_MissingAndDiscard(t *testing.T) {
	s := newTestServer(t)

	requireStatus(t, s.do(http.MethodGet, "/v1/draft", ""), http.StatusNotFound)
	requireStatus(t, s.do(http.MethodPost, "/v1/draft/save", ""), http.StatusNotFound)
	requireStatus(t, s.do(http.MethodGet, "/v1/draft/stats", ""), http.StatusNotFound)

	requireStatus(t, s.do(http.MethodPost, "/v1/draft", ""), http.StatusCreated)
	requireStatus(t, s.do(http.MethodDelete, "/v1/draft", ""), http.StatusNoContent)
	requireStatus(t, s.do(http.MethodGet, "/v1/draft", ""), http.StatusNotFound)

	w := s.do(http.MethodGet, "/v1/resumes", "")
	requireStatus(t, w, http.StatusOK)
	assert.Empty(t, decode[listResponse](t, w).Items)
}

func TestDraft_Skills(t *testing.T) {
	s := newTestServer(t)
	requireStatus(t, s.do(http.MethodPost, "/v1/draft", ""), http.StatusCreated)

	w := s.do(http.MethodPost, "/v1/draft/skills", `{"name":"Go","rating":4}`)
	requireStatus(t, w, http.StatusCreated)
	draft := decode[draftResponse](t, w)
	require.Len(t, draft.Draft.Skills, 1)
	assert.Equal(t, resume.DefaultSkillCategory, draft.Draft.Skills[0].Category)

	w = s.do(http.MethodPost, "/v1/draft/skills", `{"name":" go "}`)
	requireStatus(t, w, http.StatusConflict)
	assert.Equal(t, float64(errcode.DuplicateInput), decode[map[string]any](t, w)["code"])

	w = s.do(http.MethodPost, "/v1/draft/skills", `{"name":"  "}`)
	requireStatus(t, w, http.StatusBadRequest)

	w = s.do(http.MethodPost, "/v1/draft/skills", `{"name":"Rust","rating":9}`)
	requireStatus(t, w, http.StatusBadRequest)

	w = s.do(http.MethodGet, "/v1/draft", "")
	assert.Len(t, decode[draftResponse](t, w).Draft.Skills, 1)

	w = s.do(http.MethodPost, "/v1/draft/skills/apply", `{"names":["Go","SQL","Docker"]}`)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, []any{"SQL", "Docker"}, decode[map[string]any](t, w)["added"])

	requireStatus(t, s.do(http.MethodDelete, "/v1/draft/skills/Go", ""), http.StatusOK)
	requireStatus(t, s.do(http.MethodDelete, "/v1/draft/skills/Go", ""), http.StatusNotFound)
}

func TestDraft_Stats(t *testing.T) {
	s := newTestServer(t)
	requireStatus(t, s.do(http.MethodPost, "/v1/draft", ""), http.StatusCreated)
	requireStatus(t, s.do(http.MethodPut, "/v1/draft", `{"summary":"Ships <b>reliable</b> systems"}`), http.StatusOK)

	w := s.do(http.MethodGet, "/v1/draft/stats", "")
	requireStatus(t, w, http.StatusOK)
	assert.NotEmpty(t, w.Body.String())
}

func TestDraft_Suggest(t *testing.T) {
	gen := &stubGenerator{lines: []string{"Go", "<b>SQL</b>", "sql", "Kubernetes"}}
	s := newTestServer(t, func(d *Deps) { d.Generator = gen })
	requireStatus(t, s.do(http.MethodPost, "/v1/draft", ""), http.StatusCreated)
	requireStatus(t, s.do(http.MethodPost, "/v1/draft/skills", `{"name":"Go"}`), http.StatusCreated)

	w := s.do(http.MethodPost, "/v1/draft/suggestions", `{"kind":"skills"}`)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, []any{"SQL", "Kubernetes"}, decode[map[string]any](t, w)["suggestions"])
	assert.Equal(t, []assist.Kind{assist.KindSkills}, gen.kinds)

	w = s.do(http.MethodPost, "/v1/draft/suggestions", `{"kind":"poem"}`)
	requireStatus(t, w, http.StatusBadRequest)

	w = s.do(http.MethodPost, "/v1/draft/suggestions", `{"kind":"work_summary","index":3}`)
	requireStatus(t, w, http.StatusBadRequest)

	gen.err = assist.ErrGeneratorUnavailable
	w = s.do(http.MethodPost, "/v1/draft/suggestions", `{"kind":"summary"}`)
	requireStatus(t, w, http.StatusServiceUnavailable)
	assert.Equal(t, true, decode[map[string]any](t, w)["retryable"])
}

func TestDraft_SuggestDisabled(t *testing.T) {
	s := newTestServer(t)
	requireStatus(t, s.do(http.MethodPost, "/v1/draft", ""), http.StatusCreated)

	w := s.do(http.MethodPost, "/v1/draft/suggestions", `{"kind":"summary"}`)
	requireStatus(t, w, http.StatusServiceUnavailable)
}
