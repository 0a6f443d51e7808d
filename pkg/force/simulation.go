// Package force implements an iterative force-directed relaxation.
//
// A Simulation owns a table of node positions and velocities. Each Tick
// applies link, charge, centering and collision forces and integrates
// velocities. The energy parameter (alpha) decays toward a target; once it
// falls below AlphaMin the simulation is at rest. Drag interactions pin nodes
// and raise the target so the rest of the graph reacts.
package force

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ddl-r-abdulaziz/clustermap/pkg/graph"
)

var (
	initialRadius = 10.0
	initialAngle  = math.Pi * (3 - math.Sqrt(5))
)

// Config holds the simulation parameters.
type Config struct {
	LinkDistance   float64
	ChargeStrength float64
	Center         graph.Point
	AlphaMin       float64
	AlphaDecay     float64
	VelocityDecay  float64
	// DragAlphaTarget is the energy target while at least one drag is active.
	DragAlphaTarget float64
	// FrameInterval is the delay between ticks when driven by Run.
	FrameInterval time.Duration
	Seed          uint64
}

// DefaultConfig returns the parameters used by the force layout.
func DefaultConfig(width, height float64) Config {
	alphaMin := 0.001
	return Config{
		LinkDistance:    100,
		ChargeStrength:  -300,
		Center:          graph.Point{X: width / 2, Y: height / 2},
		AlphaMin:        alphaMin,
		AlphaDecay:      1 - math.Pow(alphaMin, 1.0/300),
		VelocityDecay:   0.4,
		DragAlphaTarget: 0.3,
		FrameInterval:   16 * time.Millisecond,
		Seed:            1,
	}
}

// NodeSpec describes a node entering the simulation.
type NodeSpec struct {
	ID string
	// Radius is the collision radius.
	Radius float64
}

// LinkSpec connects two nodes by ID.
type LinkSpec struct {
	Source string
	Target string
}

type body struct {
	id     string
	radius float64
	x, y   float64
	vx, vy float64
	pinned bool
	fx, fy float64
}

type link struct {
	source, target int
	strength, bias float64
}

// Simulation is a force relaxation over an owned node table. All methods are
// safe for concurrent use; ticks never overlap.
type Simulation struct {
	mu          sync.Mutex
	cfg         Config
	nodes       []body
	index       map[string]int
	links       []link
	alpha       float64
	alphaTarget float64
	active      bool
	rng         *rand.Rand

	wake      chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
	onRestart func()
}

// New creates a simulation. Nodes are placed on a phyllotaxis spiral around the center.
func New(nodes []NodeSpec, links []LinkSpec, cfg Config) (*Simulation, error) {
	s := &Simulation{
		cfg:    cfg,
		nodes:  make([]body, len(nodes)),
		index:  make(map[string]int, len(nodes)),
		links:  make([]link, 0, len(links)),
		alpha:  1,
		active: true,
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	for i, n := range nodes {
		if _, dup := s.index[n.ID]; dup {
			return nil, fmt.Errorf("duplicate simulation node %q", n.ID)
		}
		s.index[n.ID] = i
		radius := initialRadius * math.Sqrt(0.5+float64(i))
		angle := float64(i) * initialAngle
		s.nodes[i] = body{
			id:     n.ID,
			radius: n.Radius,
			x:      cfg.Center.X + radius*math.Cos(angle),
			y:      cfg.Center.Y + radius*math.Sin(angle),
		}
	}

	count := make([]int, len(nodes))
	for _, l := range links {
		src, ok := s.index[l.Source]
		if !ok {
			return nil, fmt.Errorf("link source %q is not a simulation node", l.Source)
		}
		tgt, ok := s.index[l.Target]
		if !ok {
			return nil, fmt.Errorf("link target %q is not a simulation node", l.Target)
		}
		count[src]++
		count[tgt]++
		s.links = append(s.links, link{source: src, target: tgt})
	}
	for i := range s.links {
		l := &s.links[i]
		l.strength = 1 / float64(min(count[l.source], count[l.target]))
		l.bias = float64(count[l.source]) / float64(count[l.source]+count[l.target])
	}

	return s, nil
}

// Tick advances the simulation by one step regardless of alpha.
func (s *Simulation) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick()
}

// Settle ticks until alpha drops below AlphaMin or maxTicks is reached and
// returns the number of ticks performed.
func (s *Simulation) Settle(maxTicks int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for n < maxTicks && s.alpha >= s.cfg.AlphaMin {
		s.tick()
		n++
	}
	if s.alpha < s.cfg.AlphaMin {
		s.active = false
	}
	return n
}

func (s *Simulation) tick() {
	s.alpha += (s.alphaTarget - s.alpha) * s.cfg.AlphaDecay

	s.applyLinks()
	s.applyCharge()
	s.applyCenter()
	s.applyCollision()

	velocityDecay := 1 - s.cfg.VelocityDecay
	for i := range s.nodes {
		n := &s.nodes[i]
		if n.pinned {
			n.x, n.y = n.fx, n.fy
			n.vx, n.vy = 0, 0
			continue
		}
		n.vx *= velocityDecay
		n.vy *= velocityDecay
		n.x += n.vx
		n.y += n.vy
	}

	simulationTicks.Inc()
}

func (s *Simulation) jiggle() float64 {
	return (s.rng.Float64() - 0.5) * 1e-6
}

func (s *Simulation) applyLinks() {
	for _, l := range s.links {
		src, tgt := &s.nodes[l.source], &s.nodes[l.target]
		x := tgt.x + tgt.vx - src.x - src.vx
		if x == 0 {
			x = s.jiggle()
		}
		y := tgt.y + tgt.vy - src.y - src.vy
		if y == 0 {
			y = s.jiggle()
		}
		d := math.Sqrt(x*x + y*y)
		d = (d - s.cfg.LinkDistance) / d * s.alpha * l.strength
		x *= d
		y *= d
		tgt.vx -= x * l.bias
		tgt.vy -= y * l.bias
		src.vx += x * (1 - l.bias)
		src.vy += y * (1 - l.bias)
	}
}

// applyCharge is an exact pairwise many-body force. Strength is negative for repulsion.
func (s *Simulation) applyCharge() {
	const distanceMin2 = 1.0
	w0 := s.cfg.ChargeStrength * s.alpha
	for i := range s.nodes {
		n := &s.nodes[i]
		for j := range s.nodes {
			if i == j {
				continue
			}
			o := &s.nodes[j]
			dx := o.x - n.x
			dy := o.y - n.y
			if dx == 0 {
				dx = s.jiggle()
			}
			if dy == 0 {
				dy = s.jiggle()
			}
			l := dx*dx + dy*dy
			if l < distanceMin2 {
				l = math.Sqrt(distanceMin2 * l)
			}
			w := w0 / l
			n.vx += dx * w
			n.vy += dy * w
		}
	}
}

func (s *Simulation) applyCenter() {
	if len(s.nodes) == 0 {
		return
	}
	var sx, sy float64
	for _, n := range s.nodes {
		sx += n.x
		sy += n.y
	}
	sx = sx/float64(len(s.nodes)) - s.cfg.Center.X
	sy = sy/float64(len(s.nodes)) - s.cfg.Center.Y
	for i := range s.nodes {
		s.nodes[i].x -= sx
		s.nodes[i].y -= sy
	}
}

func (s *Simulation) applyCollision() {
	for i := range s.nodes {
		n := &s.nodes[i]
		ri := n.radius
		ri2 := ri * ri
		xi := n.x + n.vx
		yi := n.y + n.vy
		for j := i + 1; j < len(s.nodes); j++ {
			o := &s.nodes[j]
			rj := o.radius
			r := ri + rj
			x := xi - o.x - o.vx
			y := yi - o.y - o.vy
			l := x*x + y*y
			if l >= r*r {
				continue
			}
			if x == 0 {
				x = s.jiggle()
				l += x * x
			}
			if y == 0 {
				y = s.jiggle()
				l += y * y
			}
			l = math.Sqrt(l)
			l = (r - l) / l
			x *= l
			y *= l
			share := rj * rj / (ri2 + rj*rj)
			n.vx += x * share
			n.vy += y * share
			o.vx -= x * (1 - share)
			o.vy -= y * (1 - share)
		}
	}
}

// Positions returns the current node positions in insertion order.
func (s *Simulation) Positions() []graph.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positions()
}

func (s *Simulation) positions() []graph.Point {
	out := make([]graph.Point, len(s.nodes))
	for i, n := range s.nodes {
		out[i] = graph.Point{X: n.x, Y: n.y}
	}
	return out
}

// Position returns the current position of a node.
func (s *Simulation) Position(id string) (graph.Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return graph.Point{}, false
	}
	return graph.Point{X: s.nodes[i].x, Y: s.nodes[i].y}, true
}

// Pin fixes a node at p until Unpin.
func (s *Simulation) Pin(id string, p graph.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("unknown simulation node %q", id)
	}
	n := &s.nodes[i]
	n.pinned = true
	n.fx, n.fy = p.X, p.Y
	return nil
}

// Unpin releases a pinned node back into free relaxation.
func (s *Simulation) Unpin(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("unknown simulation node %q", id)
	}
	s.nodes[i].pinned = false
	return nil
}

// Pinned reports the pin of a node, if any.
func (s *Simulation) Pinned(id string) (graph.Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok || !s.nodes[i].pinned {
		return graph.Point{}, false
	}
	return graph.Point{X: s.nodes[i].fx, Y: s.nodes[i].fy}, true
}

// SetAlphaTarget sets the value alpha decays toward.
func (s *Simulation) SetAlphaTarget(target float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alphaTarget = target
}

// Alpha returns the current energy.
func (s *Simulation) Alpha() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alpha
}

// Settled reports whether the simulation is at rest.
func (s *Simulation) Settled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.active
}

// Restart resumes ticking after the simulation came to rest.
func (s *Simulation) Restart() {
	s.mu.Lock()
	s.active = true
	hook := s.onRestart
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	if hook != nil {
		hook()
	}
}

// OnRestart registers fn to be called on the caller's goroutine after every
// Restart. It lets an owner start Run only once something reheats a settled
// simulation.
func (s *Simulation) OnRestart(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRestart = fn
}

// Stop ends Run permanently. It is safe to call more than once.
func (s *Simulation) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// Stopped reports whether Stop was called.
func (s *Simulation) Stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// TickFunc receives node positions, in insertion order, after each tick.
type TickFunc func(positions []graph.Point)

// Run ticks once per frame until ctx is done or Stop is called. While at
// rest it waits for Restart. onTick runs on the Run goroutine.
func (s *Simulation) Run(ctx context.Context, onTick TickFunc) error {
	interval := s.cfg.FrameInterval
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.mu.Lock()
		active := s.active
		s.mu.Unlock()

		if !active {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.done:
				return nil
			case <-s.wake:
				continue
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case <-ticker.C:
		}

		s.mu.Lock()
		s.tick()
		positions := s.positions()
		if s.alpha < s.cfg.AlphaMin {
			s.active = false
		}
		s.mu.Unlock()

		if onTick != nil {
			onTick(positions)
		}
	}
}
