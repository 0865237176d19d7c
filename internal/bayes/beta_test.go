package bayes

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBeta_Validation(t *testing.T) {
	tests := []struct {
		name    string
		alpha   float64
		beta    float64
		wantErr bool
	}{
		{"uniform", 1, 1, false},
		{"jeffreys", 0.5, 0.5, false},
		{"posterior-like", 201, 4801, false},
		{"zero alpha", 0, 1, true},
		{"negative beta", 1, -2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBeta(tt.alpha, tt.beta)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.alpha, b.Alpha)
			assert.Equal(t, tt.beta, b.Beta)
		})
	}
}

func TestUpdate_ConjugateFormula(t *testing.T) {
	prior := Uniform()

	post, err := prior.Update(200, 4800)
	require.NoError(t, err)

	// posterior_shape1 = prior_shape1 + clicked
	// posterior_shape2 = prior_shape2 + not_clicked
	assert.Equal(t, 201.0, post.Alpha)
	assert.Equal(t, 4801.0, post.Beta)

	// Sequential batches must land on the same posterior as one big batch.
	day1, err := prior.Update(40, 960)
	require.NoError(t, err)
	day2, err := day1.Update(160, 3840)
	require.NoError(t, err)
	assert.Equal(t, post, day2)
}

func TestUpdate_ZeroObservationsIsIdentity(t *testing.T) {
	prior := Jeffreys()
	post, err := prior.Update(0, 0)
	require.NoError(t, err)
	assert.Equal(t, prior, post)
}

func TestUpdate_RejectsNegativeCounts(t *testing.T) {
	_, err := Uniform().Update(-1, 10)
	assert.Error(t, err)
	_, err = Uniform().Update(10, -1)
	assert.Error(t, err)
}

func TestFromCTR(t *testing.T) {
	b, err := FromCTR(0.04, 100)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, b.Alpha, 1e-12)
	assert.InDelta(t, 96.0, b.Beta, 1e-12)
	assert.InDelta(t, 0.04, b.Mean(), 1e-12)
	assert.InDelta(t, 100.0, b.EvidenceWeight(), 1e-12)

	_, err = FromCTR(0, 100)
	assert.Error(t, err)
	_, err = FromCTR(1.2, 100)
	assert.Error(t, err)
	_, err = FromCTR(0.04, 0)
	assert.Error(t, err)
}

func TestMoments(t *testing.T) {
	b := Beta{Alpha: 3, Beta: 7}
	assert.InDelta(t, 0.3, b.Mean(), 1e-12)
	// var = ab / ((a+b)^2 (a+b+1)) = 21 / (100*11)
	assert.InDelta(t, 21.0/1100.0, b.Variance(), 1e-12)
	// mode = (a-1)/(a+b-2) = 2/8
	assert.InDelta(t, 0.25, b.Mode(), 1e-12)
	// flat prior has no interior mode, falls back to the mean
	assert.InDelta(t, 0.5, Uniform().Mode(), 1e-12)
}

func TestCredibleInterval(t *testing.T) {
	post, err := Uniform().Update(200, 4800)
	require.NoError(t, err)

	lo, hi, err := post.CredibleInterval(0.95)
	require.NoError(t, err)
	assert.Less(t, lo, post.Mean())
	assert.Greater(t, hi, post.Mean())
	// A 5k-impression posterior around 4% CTR is tight.
	assert.InDelta(t, 0.040, post.Mean(), 0.002)
	assert.Less(t, hi-lo, 0.012)

	_, _, err = post.CredibleInterval(0)
	assert.Error(t, err)
	_, _, err = post.CredibleInterval(1)
	assert.Error(t, err)
}

func TestPDFIntegratesToOne(t *testing.T) {
	// Trapezoid over a fine grid; sanity check on the distuv wiring.
	b := Beta{Alpha: 5, Beta: 15}
	const steps = 20000
	sum := 0.0
	for i := 0; i <= steps; i++ {
		x := float64(i) / steps
		w := 1.0
		if i == 0 || i == steps {
			w = 0.5
		}
		p := b.PDF(x)
		if math.IsInf(p, 0) {
			continue
		}
		sum += w * p / steps
	}
	assert.InDelta(t, 1.0, sum, 1e-3)
}
