package bridge

import (
	"errors"
	"fmt"
	"html/template"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tally struct {
	Count int
	Items []string
}

func newTallyState() *State[tally] {
	return NewState(
		func() tally { return tally{Items: []string{"seed"}} },
		func(s tally) Regions {
			return Regions{
				{ID: "count", HTML: template.HTML(fmt.Sprintf(`<span id="count">%d</span>`, s.Count))},
				{ID: "items", HTML: template.HTML(fmt.Sprintf(`<span id="items">%d</span>`, len(s.Items)))},
			}
		},
	)
}

func TestStateRendersOnCreate(t *testing.T) {
	s := newTallyState()
	region, ok := s.Regions().Get("count")
	require.True(t, ok)
	assert.Equal(t, template.HTML(`<span id="count">0</span>`), region.HTML)
	assert.Equal(t, []string{"count", "items"}, s.Regions().IDs())
}

func TestStateUpdateRerenders(t *testing.T) {
	s := newTallyState()
	var rendered int
	s.OnRender(func(Regions) { rendered++ })

	_, err := s.Update(func(cur tally) (tally, error) {
		cur.Count = 7
		return cur, nil
	})
	require.NoError(t, err)

	region, _ := s.Regions().Get("count")
	assert.Equal(t, template.HTML(`<span id="count">7</span>`), region.HTML)
	assert.Equal(t, 1, rendered)
}

func TestStateUpdateErrorLeavesValue(t *testing.T) {
	s := newTallyState()
	var rendered int
	s.OnRender(func(Regions) { rendered++ })

	got, err := s.Update(func(cur tally) (tally, error) {
		cur.Count = 99
		return cur, errors.New("rejected")
	})
	require.Error(t, err)
	assert.Equal(t, 0, got.Count)
	assert.Equal(t, 0, s.Get().Count)
	assert.Zero(t, rendered)
}

func TestStateSnapshotsSurviveReplacement(t *testing.T) {
	s := newTallyState()
	before := s.Get()

	_, err := s.Update(func(cur tally) (tally, error) {
		items := append(append([]string(nil), cur.Items...), "more")
		cur.Items = items
		return cur, nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"seed"}, before.Items)
	assert.Equal(t, []string{"seed", "more"}, s.Get().Items)
}

func TestStateConcurrentUpdatesSerialise(t *testing.T) {
	s := newTallyState()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Update(func(cur tally) (tally, error) {
				cur.Count++
				return cur, nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, s.Get().Count)
}

func TestStateHooksSeeUpdatesInOrder(t *testing.T) {
	s := newTallyState()
	entered := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var seen []string
	s.OnRender(func(r Regions) {
		region, _ := r.Get("count")
		if region.HTML == `<span id="count">1</span>` {
			close(entered)
			<-release
		}
		mu.Lock()
		seen = append(seen, string(region.HTML))
		mu.Unlock()
	})

	set := func(n int) func(tally) (tally, error) {
		return func(cur tally) (tally, error) {
			cur.Count = n
			return cur, nil
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = s.Update(set(1))
	}()
	<-entered
	go func() {
		defer wg.Done()
		_, _ = s.Update(set(2))
	}()
	require.Eventually(t, func() bool { return s.Get().Count == 2 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, []string{`<span id="count">1</span>`, `<span id="count">2</span>`}, seen)
}

func TestStateConcurrentHooksAreMonotonic(t *testing.T) {
	s := newTallyState()
	var counts []int
	s.OnRender(func(r Regions) {
		region, _ := r.Get("count")
		var n int
		_, _ = fmt.Sscanf(string(region.HTML), `<span id="count">%d</span>`, &n)
		counts = append(counts, n)
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Update(func(cur tally) (tally, error) {
				cur.Count++
				return cur, nil
			})
		}()
	}
	wg.Wait()

	require.Len(t, counts, 50)
	for i, n := range counts {
		assert.Equal(t, i+1, n)
	}
}

func TestStateReset(t *testing.T) {
	s := newTallyState()
	_, _ = s.Update(func(cur tally) (tally, error) {
		return tally{Count: 3}, nil
	})

	reset := s.Reset()
	assert.Equal(t, tally{Items: []string{"seed"}}, reset)
	region, _ := s.Regions().Get("items")
	assert.Equal(t, template.HTML(`<span id="items">1</span>`), region.HTML)
}

func TestRenderIsIdempotent(t *testing.T) {
	s := newTallyState()
	first := s.Render()
	second := s.Render()
	assert.Equal(t, first, second)
}

func TestExecuteTemplate(t *testing.T) {
	tmpl := template.Must(template.New("").Parse(`{{define "x"}}<b id="x">{{.}}</b>{{end}}`))
	assert.Equal(t, template.HTML(`<b id="x">&lt;i&gt;</b>`), Execute(tmpl, "x", "<i>"))
	assert.Contains(t, string(Execute(tmpl, "missing", nil)), "render missing")
}
