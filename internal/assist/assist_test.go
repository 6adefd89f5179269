package assist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeBuilder/internal/resume"
)

type stubGenerator struct {
	out  []string
	err  error
	kind Kind
	ctx  string
}

func (g *stubGenerator) GenerateText(_ context.Context, kind Kind, context string) ([]string, error) {
	g.kind, g.ctx = kind, context
	return g.out, g.err
}

func TestSuggest_NormalizesMarkup(t *testing.T) {
	g := &stubGenerator{out: []string{
		`<p>Led <b>five</b> teams<script>x()</script></p>`,
		"  ",
		"led <i>five</i> teams",
		"Shipped fast",
	}}

	got, err := Suggest(context.Background(), g, KindSummary, "ctx")
	require.NoError(t, err)

	assert.Equal(t, KindSummary, g.kind)
	require.Len(t, got, 2)
	assert.Equal(t, "Led <b>five</b> teams", got[0])
	assert.Equal(t, "Shipped fast", got[1])
}

func TestSuggest_PropagatesError(t *testing.T) {
	g := &stubGenerator{err: errors.New("quota")}
	_, err := Suggest(context.Background(), g, KindSkills, "")
	assert.ErrorContains(t, err, "quota")
}

func TestNormalize_SkillsArePlain(t *testing.T) {
	got := Normalize(KindSkills, []string{"- <b>Go</b>", "• Rust", "go"})
	assert.Equal(t, []string{"Go", "Rust"}, got)
}

func TestNewSkills(t *testing.T) {
	doc := resume.NewDocument()
	require.NoError(t, doc.AddSkill(resume.Skill{Name: "Go"}))

	assert.Equal(t, []string{"Rust"}, NewSkills(doc, []string{"GO", "Rust"}))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("work_summary")
	require.NoError(t, err)
	assert.Equal(t, KindWorkSummary, k)

	_, err = ParseKind("poem")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestContextFor(t *testing.T) {
	doc := resume.NewDocument()
	doc.Personal.JobTitle = "Engineer"
	doc.Experience = []resume.Experience{{Title: "SRE", CompanyName: "Acme", WorkSummary: "<b>On call</b>"}}

	got, err := ContextFor(doc, KindWorkSummary, 0)
	require.NoError(t, err)
	assert.Equal(t, "Job title: Engineer\nRole: SRE at Acme\nNotes: On call\n", got)

	_, err = ContextFor(doc, KindProjectSummary, 0)
	assert.Error(t, err)
	_, err = ContextFor(doc, Kind("x"), 0)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestChatGenerator(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"- Go\n\n• Rust\nSQL"}}]}`))
	}))
	defer srv.Close()

	g := NewChatGenerator(srv.URL+"/v1/", "key", "test-model", time.Second)
	out, err := g.GenerateText(context.Background(), KindSkills, "Role: SRE")
	require.NoError(t, err)

	assert.Equal(t, []string{"Go", "Rust", "SQL"}, out)
	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "Role: SRE", got.Messages[1].Content)
}

func TestChatGenerator_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewChatGenerator(srv.URL, "", "m", time.Second)
	_, err := g.GenerateText(context.Background(), KindSummary, "")
	assert.ErrorIs(t, err, ErrGeneratorUnavailable)

	_, err = g.GenerateText(context.Background(), Kind("poem"), "")
	assert.ErrorIs(t, err, ErrUnknownKind)
}
