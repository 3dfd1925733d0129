package layout

// Base node box and spacing values, in scene pixels.
const (
	DefaultNodeWidth  = 300
	DefaultNodeHeight = 90
	DefaultHGap       = 60
	DefaultVGap       = 110
)

// BarycenterIterations is the number of crossing-reduction sweeps both
// engines run over their layers.
const BarycenterIterations = 5

// Point is a node position in scene coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a bounding-box estimate in scene coordinates.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Config carries the node box size and gap spacing the engines lay out
// with. Zero fields select the defaults, so Config{} is a valid value.
type Config struct {
	NodeW int
	NodeH int
	HGap  int
	VGap  int
}

// WithDefaults returns the config with zero fields replaced by the
// package defaults.
func (c Config) WithDefaults() Config {
	if c.NodeW == 0 {
		c.NodeW = DefaultNodeWidth
	}
	if c.NodeH == 0 {
		c.NodeH = DefaultNodeHeight
	}
	if c.HGap == 0 {
		c.HGap = DefaultHGap
	}
	if c.VGap == 0 {
		c.VGap = DefaultVGap
	}
	return c
}

// cell spans are the per-node footprint on each axis.
func (c Config) cellW() float64 { return float64(c.NodeW + c.HGap) }
func (c Config) cellH() float64 { return float64(c.NodeH + c.VGap) }

// Scale multiplies both gaps by factor, floored at the minimum spacing the
// editor allows, so repeated tighten steps never fuse nodes together.
func (c Config) Scale(factor float64) Config {
	c = c.WithDefaults()
	c.HGap = max(10, int(float64(c.HGap)*factor))
	c.VGap = max(40, int(float64(c.VGap)*factor))
	return c
}

// AutoGaps picks gap spacing for a graph of n rows. Larger graphs get
// tighter gaps, scaled in steps and floored so nodes stay distinguishable.
func AutoGaps(n int) (hGap, vGap int) {
	var k float64
	switch {
	case n <= 300:
		k = 1.0
	case n <= 800:
		k = 0.8
	case n <= 1200:
		k = 0.65
	default:
		k = 0.55
	}
	return max(20, int(DefaultHGap*k)), max(60, int(DefaultVGap*k))
}
