package voice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSanitizeSpeechText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "drops emoji and markdown markers",
			in:   "Sure \U0001F60A **let's** do this / now.",
			want: "Sure let's do this now.",
		},
		{
			name: "keeps markdown link label and removes url",
			in:   "Read [the docs](https://example.com/docs) first.",
			want: "Read the docs first.",
		},
		{
			name: "removes code blocks and inline code",
			in:   "```bash\nnpm run dev\n```\nThen run `make test` ✅",
			want: "Then run",
		},
		{
			name: "plain suggestion unchanged",
			in:   "Could you please clarify?",
			want: "Could you please clarify?",
		},
		{
			name: "odd punctuation becomes spacing",
			in:   "Hello***world///again",
			want: "Hello world again",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := sanitizeSpeechText(tc.in)
			if got != tc.want {
				t.Fatalf("sanitizeSpeechText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestDispatcherSpeaksInBackground(t *testing.T) {
	speaker := NewMockSpeaker()
	d := NewDispatcher(speaker, nil, nil)

	if d.SpeakAsync("  **") {
		t.Fatalf("SpeakAsync(markup only) = true, want false")
	}
	if !d.SpeakAsync("Thank **you** kindly.") {
		t.Fatalf("SpeakAsync() = false, want true")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if diff := cmp.Diff([]string{"Thank you kindly."}, speaker.Spoken()); diff != "" {
		t.Fatalf("Spoken() mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatcherReportsErrors(t *testing.T) {
	speaker := NewMockSpeaker()
	speaker.Err = errors.New("device busy")
	errs := make(chan error, 1)
	d := NewDispatcher(speaker, nil, func(err error) { errs <- err })

	d.SpeakAsync("Hello there.")
	select {
	case err := <-errs:
		if err.Error() != "device busy" {
			t.Fatalf("error = %v, want device busy", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("error hook not called")
	}
}

func TestNilDispatcher(t *testing.T) {
	var d *Dispatcher
	if d.SpeakAsync("hello") {
		t.Fatalf("nil dispatcher dispatched")
	}
	if err := d.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}
