package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validSpec() CreateSpec {
	return CreateSpec{
		Slot:      "build",
		Kind:      SubprocessTaskKind(SubprocessKind{Command: "true"}),
		TimeoutMS: 1000,
		Restart:   RestartStrategy{Kind: RestartNever},
		Admission: DropIfRunning,
	}
}

func TestValidateRejectsZeroTimeout(t *testing.T) {
	s := validSpec()
	s.TimeoutMS = 0
	err := s.Validate()
	assert.ErrorIs(t, err, &Error{Kind: KindInvalidSpec})
}

func TestValidateRejectsEmptyCommand(t *testing.T) {
	s := validSpec()
	s.Kind = SubprocessTaskKind(SubprocessKind{Command: "   "})
	err := s.Validate()
	assert.ErrorIs(t, err, &Error{Kind: KindInvalidSpec})
}

func TestValidateRejectsZeroBackoffFields(t *testing.T) {
	s := validSpec()
	s.Restart = RestartStrategy{Kind: RestartOnFailure}
	s.Backoff = BackoffStrategy{FirstMS: 0, MaxMS: 100, Factor: 2}
	assert.ErrorIs(t, s.Validate(), &Error{Kind: KindInvalidSpec})

	s.Backoff = BackoffStrategy{FirstMS: 100, MaxMS: 0, Factor: 2}
	assert.ErrorIs(t, s.Validate(), &Error{Kind: KindInvalidSpec})

	s.Backoff = BackoffStrategy{FirstMS: 100, MaxMS: 200, Factor: 0}
	assert.ErrorIs(t, s.Validate(), &Error{Kind: KindInvalidSpec})
}

func TestValidateAcceptsValidSpec(t *testing.T) {
	s := validSpec()
	assert.NoError(t, s.Validate())
}

func TestRunnerTagLabel(t *testing.T) {
	s := validSpec()
	s.Labels = NewLabels(KV{RunnerTagLabel, "gpu"})
	tag, ok := s.RunnerTag()
	assert.True(t, ok)
	assert.Equal(t, "gpu", tag)
}
