package arch_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/batchsize/internal/arch"
)

func Test_Detector_Returns_Last_Line(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name   string
		script string
		want   string
	}{
		{name: "single line", script: "echo gpuX", want: "gpuX"},
		{name: "runtime noise first", script: "echo 'loading cuda'; echo 'NVIDIA A100-SXM4-40GB'", want: "NVIDIA A100-SXM4-40GB"},
		{name: "trailing blank lines", script: "printf 'cpuA\\r\\n\\n\\n'", want: "cpuA"},
		{name: "keeps inner spaces", script: "echo 'Intel(R) Xeon(R) CPU @ 2.50GHz'", want: "Intel(R) Xeon(R) CPU @ 2.50GHz"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := &arch.Detector{Command: []string{"sh", "-c", tt.script}}

			got, err := d.Detect(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_Detector_Returns_Error_When_Probe_Fails(t *testing.T) {
	t.Parallel()

	d := &arch.Detector{Command: []string{"sh", "-c", "echo 'no driver' >&2; exit 2"}}

	_, err := d.Detect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 2")
	assert.Contains(t, err.Error(), "no driver")
}

func Test_Detector_Returns_Error_When_Probe_Prints_Nothing(t *testing.T) {
	t.Parallel()

	d := &arch.Detector{Command: []string{"sh", "-c", "echo '   '"}}

	_, err := d.Detect(context.Background())
	require.Error(t, err)
}

func Test_Detector_Returns_Error_When_Command_Empty(t *testing.T) {
	t.Parallel()

	_, err := (&arch.Detector{}).Detect(context.Background())
	require.Error(t, err)
}
