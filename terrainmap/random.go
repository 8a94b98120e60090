package terrainmap

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r2"

	"github.com/deimos-rover/deimos/cellmap"
)

// RandomParams configures random terrain generation.
type RandomParams struct {
	// Seed fixes the noise field so runs are repeatable.
	Seed int64 `json:"seed"`

	// FeatureSizeM is the wavelength of the dominant terrain features.
	FeatureSizeM float64 `json:"feature_size_m"`

	// AmplitudeM is the peak-to-peak height of the terrain.
	AmplitudeM float64 `json:"amplitude_m"`

	// Octaves layers progressively smaller features on top of the dominant
	// ones.
	Octaves int `json:"octaves"`
}

// DefaultRandomParams returns gentle rolling terrain.
func DefaultRandomParams(seed int64) RandomParams {
	return RandomParams{
		Seed:         seed,
		FeatureSizeM: 4.0,
		AmplitudeM:   0.4,
		Octaves:      3,
	}
}

// GenerateRandom builds a fully-populated terrain map from layered Perlin
// noise. Every cell of the result is known.
func GenerateRandom(params cellmap.Params, random RandomParams) (*Map, error) {
	m, err := New(params)
	if err != nil {
		return nil, err
	}

	noise := newPerlin(random.Seed)
	octaves := random.Octaves
	if octaves < 1 {
		octaves = 1
	}

	err = m.Apply(LayerHeight, func(_ cellmap.Vec2i, posM r2.Point, _ Height) Height {
		height := 0.0
		amplitude := random.AmplitudeM / 2
		freq := 1.0 / random.FeatureSizeM
		for o := 0; o < octaves; o++ {
			height += amplitude * noise.at(posM.X*freq, posM.Y*freq)
			amplitude /= 2
			freq *= 2
		}
		return KnownHeight(height)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// perlin is a classic 2D gradient noise field over a permuted integer
// lattice.
type perlin struct {
	perm [512]int
}

func newPerlin(seed int64) *perlin {
	p := &perlin{}
	rng := rand.New(rand.NewSource(seed))
	base := rng.Perm(256)
	for i := 0; i < 512; i++ {
		p.perm[i] = base[i%256]
	}
	return p
}

func (p *perlin) gradient(hash int, x, y float64) float64 {
	switch hash & 3 {
	case 0:
		return x + y
	case 1:
		return -x + y
	case 2:
		return x - y
	default:
		return -x - y
	}
}

func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func (p *perlin) at(x, y float64) float64 {
	xi := int(math.Floor(x)) & 255
	yi := int(math.Floor(y)) & 255
	xf := x - math.Floor(x)
	yf := y - math.Floor(y)

	u := fade(xf)
	v := fade(yf)

	aa := p.perm[p.perm[xi]+yi]
	ab := p.perm[p.perm[xi]+yi+1]
	ba := p.perm[p.perm[xi+1]+yi]
	bb := p.perm[p.perm[xi+1]+yi+1]

	x1 := lerp(p.gradient(aa, xf, yf), p.gradient(ba, xf-1, yf), u)
	x2 := lerp(p.gradient(ab, xf, yf-1), p.gradient(bb, xf-1, yf-1), u)
	return lerp(x1, x2, v)
}
