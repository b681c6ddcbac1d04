package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pagecheck/internal/harness"
	"github.com/roach88/pagecheck/internal/outcome"
)

const latitudeMessage = "Latitude must be between -90 and 90."

func mixedBuilder() *Builder {
	b := NewBuilder("observed-react", "run-1")
	b.Add("login_ok", outcome.Success("/distance-to-sun"), outcome.Success("/distance-to-sun"))
	b.AddResult(&harness.Result{
		Name:     "latitude_range",
		Route:    "/distance-to-sun",
		Expected: outcome.ValidationError(latitudeMessage),
		Actual:   outcome.Success("/distance-to-sun"),
		Errors:   []string{`expected ValidationError("Latitude must be between -90 and 90."), got Success(/distance-to-sun)`},
	})
	b.AddResult(&harness.Result{
		Name:     "page_shape_changed",
		Route:    "/distance-to-sun",
		Expected: outcome.ValidationError("Please fill in all fields."),
		Fault:    "fill [name=lat]: element not found",
		Errors:   []string{"fill [name=lat]: element not found"},
	})
	b.AddTiming(&harness.TimingResult{
		Name:     "login_latency",
		Route:    "/",
		Expected: outcome.Success("/distance-to-sun"),
		Runs:     3,
		Samples:  []time.Duration{time.Second, time.Second, time.Second},
		Mean:     time.Second,
		Ceiling:  5 * time.Second,
		Pass:     true,
	})
	return b
}

func TestAddVerdicts(t *testing.T) {
	b := NewBuilder("c", "")

	pass := b.Add("a", outcome.Timeout(), outcome.Timeout())
	assert.Equal(t, VerdictPass, pass.Verdict)
	assert.Empty(t, pass.Errors)

	fail := b.Add("b", outcome.AuthDenied("x"), outcome.AuthDenied("y"))
	assert.Equal(t, VerdictFail, fail.Verdict)
	assert.Equal(t, []string{`expected AuthDenied("x"), got AuthDenied("y")`}, fail.Errors)
}

func TestAddResultDropsErrorsOnPass(t *testing.T) {
	b := NewBuilder("c", "")
	e := b.AddResult(&harness.Result{
		Name:     "ok",
		Pass:     true,
		Expected: outcome.Timeout(),
		Actual:   outcome.Timeout(),
		Errors:   []string{},
	})
	assert.Equal(t, VerdictPass, e.Verdict)
	assert.Nil(t, e.Errors)
}

func TestSummaryCounts(t *testing.T) {
	s := mixedBuilder().Summary()

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Passed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Faulted)
	assert.False(t, s.OK())

	require.NotNil(t, s.FirstFailure)
	assert.Equal(t, "latitude_range", s.FirstFailure.Name)
	assert.Contains(t, s.FirstFailure.Diff, "-message: "+latitudeMessage)
	assert.Contains(t, s.FirstFailure.Diff, "+target: /distance-to-sun")
}

func TestSummaryAllPassed(t *testing.T) {
	b := NewBuilder("c", "")
	b.Add("a", outcome.Success("/x"), outcome.Success("/x"))

	s := b.Summary()
	assert.True(t, s.OK())
	assert.Nil(t, s.FirstFailure)
}

func TestSummaryEmptyIsOK(t *testing.T) {
	s := NewBuilder("c", "").Summary()
	assert.True(t, s.OK())
	assert.Equal(t, 0, s.Total)
	assert.Empty(t, s.Entries)
}

func TestFirstFailureFault(t *testing.T) {
	b := NewBuilder("c", "")
	b.AddResult(&harness.Result{
		Name:     "broken",
		Expected: outcome.Success("/x"),
		Fault:    "navigate http://app.test/: connection refused",
		Errors:   []string{"navigate http://app.test/: connection refused"},
	})

	s := b.Summary()
	require.NotNil(t, s.FirstFailure)
	assert.Equal(t, "Success(/x)", s.FirstFailure.Expected)
	assert.Equal(t, "navigate http://app.test/: connection refused", s.FirstFailure.Actual)
	assert.Empty(t, s.FirstFailure.Diff)
}

func TestFirstFailureTiming(t *testing.T) {
	b := NewBuilder("c", "")
	b.AddTiming(&harness.TimingResult{
		Name:     "slow",
		Expected: outcome.Success("/x"),
		Samples:  []time.Duration{6 * time.Second},
		Mean:     6 * time.Second,
		Ceiling:  5 * time.Second,
		Failure:  "mean 6s over 1 runs is not below the 5s ceiling",
	})

	s := b.Summary()
	assert.Equal(t, 1, s.Failed)
	require.NotNil(t, s.FirstFailure)
	assert.Equal(t, "Success(/x), mean below 5s", s.FirstFailure.Expected)
	assert.Equal(t, "mean 6s over 1 runs is not below the 5s ceiling", s.FirstFailure.Actual)
}

func TestAddError(t *testing.T) {
	b := NewBuilder("c", "")
	e := b.AddError("bad", errors.New("route \"/nope\" is not in the contract"))
	assert.Equal(t, VerdictFail, e.Verdict)

	s := b.Summary()
	require.NotNil(t, s.FirstFailure)
	assert.Equal(t, `route "/nope" is not in the contract`, s.FirstFailure.Actual)
}

func TestRenderText(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, mixedBuilder().Summary()))
	g.Assert(t, "mixed_text", buf.Bytes())
}

func TestRenderTextAllPassed(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	b := NewBuilder("observed-react", "")
	b.Add("login_ok", outcome.Success("/distance-to-sun"), outcome.Success("/distance-to-sun"))
	b.Add("protected_without_login", outcome.AuthDenied("Login before accessing the application Page"), outcome.AuthDenied("Login before accessing the application Page"))

	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, b.Summary()))
	g.Assert(t, "passed_text", buf.Bytes())
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderJSON(&buf, mixedBuilder().Summary()))

	var got struct {
		Contract string `json:"contract"`
		RunID    string `json:"run_id"`
		Total    int    `json:"total"`
		Faulted  int    `json:"faulted"`
		Entries  []struct {
			Name    string          `json:"name"`
			Verdict string          `json:"verdict"`
			Actual  json.RawMessage `json:"actual"`
			Timing  *struct {
				Runs    int   `json:"runs"`
				Ceiling int64 `json:"ceiling_ns"`
			} `json:"timing"`
		} `json:"entries"`
		FirstFailure struct {
			Name string `json:"name"`
		} `json:"first_failure"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, "observed-react", got.Contract)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 4, got.Total)
	assert.Equal(t, 1, got.Faulted)
	require.Len(t, got.Entries, 4)
	assert.Equal(t, "fault", got.Entries[2].Verdict)
	assert.JSONEq(t, `{"kind":"success","target":"/distance-to-sun"}`, string(got.Entries[0].Actual))
	require.NotNil(t, got.Entries[3].Timing)
	assert.Equal(t, 3, got.Entries[3].Timing.Runs)
	assert.Equal(t, int64(5*time.Second), got.Entries[3].Timing.Ceiling)
	assert.Equal(t, "latitude_range", got.FirstFailure.Name)
}
