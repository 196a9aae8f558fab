package sample

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"volsampler/internal/logging"
	"volsampler/pkg/config"
	"volsampler/pkg/volume"
)

// FileReader loads one constituent 3D volume from a path.
type FileReader interface {
	Read(path string) (*volume.Array3, error)
}

// Network exposes the layers of the consuming network as name -> (c, z, y, x).
// Only the spatial dims are used, as target sizes.
type Network interface {
	InputSpecs() map[string][4]int
	OutputSpecs() map[string][4]int
}

// Build constructs a collection from the configured samples with the given
// ids. The collection's generator is seeded from the config params.
func Build(cfg *config.Config, ids []int, net Network, reader FileReader) (*Collection, error) {
	pairs := make([]*Pair, 0, len(ids))
	for _, id := range ids {
		p, err := BuildPair(cfg, id, net, reader)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	c, err := NewCollection(pairs, rand.New(rand.NewSource(cfg.Params.Seed)))
	if err != nil {
		return nil, err
	}
	logging.Infof("built %d samples, %s in memory\n", c.Len(), humanize.Bytes(c.Footprint()))
	return c, nil
}

type outputRole struct {
	name string
	sec  *config.LabelSection
	kind volume.OutputKind
	size volume.Vec3
}

// BuildPair resolves each network layer of a sample to its configured
// section, loads the files and constructs the volumes.
func BuildPair(cfg *config.Config, id int, net Network, reader FileReader) (*Pair, error) {
	assign, err := cfg.Sample(id)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, volume.ErrInvalidConfiguration)
	}
	section := func(layer string) (int, error) {
		sid, ok := assign[layer]
		if !ok {
			return 0, fmt.Errorf("sample %d does not assign layer %q: %w", id, layer, volume.ErrInvalidConfiguration)
		}
		return sid, nil
	}

	// Output kinds are resolved first: any affinity output narrows the input ranges.
	affinity := cfg.Params.Affinity()
	outSpecs := net.OutputSpecs()
	var outs []outputRole
	for _, name := range sortedKeys(outSpecs) {
		sid, err := section(name)
		if err != nil {
			return nil, err
		}
		sec, err := cfg.Label(sid)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", err, volume.ErrInvalidConfiguration)
		}
		kind, err := volume.ParseOutputKinds(sec.PPTypes)
		if err != nil {
			return nil, fmt.Errorf("label section %d: %w", sid, err)
		}
		if kind == volume.Affinity {
			affinity = true
		}
		outs = append(outs, outputRole{name: name, sec: sec, kind: kind, size: spatial(outSpecs[name])})
	}

	inSpecs := net.InputSpecs()
	inSecs := make(map[string]*config.ImageSection, len(inSpecs))
	var paths []string
	for _, name := range sortedKeys(inSpecs) {
		sid, err := section(name)
		if err != nil {
			return nil, err
		}
		sec, err := cfg.Image(sid)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", err, volume.ErrInvalidConfiguration)
		}
		inSecs[name] = sec
		paths = append(paths, sec.Fnames...)
	}
	for _, o := range outs {
		paths = append(paths, o.sec.Fnames...)
		paths = append(paths, o.sec.Fmasks...)
	}

	files, err := loadFiles(paths, reader, cfg.Params.NumCores)
	if err != nil {
		return nil, fmt.Errorf("sample %d: %w", id, err)
	}
	lookup := func(ps []string) []*volume.Array3 {
		vols := make([]*volume.Array3, len(ps))
		for i, p := range ps {
			vols[i] = files[p]
		}
		return vols
	}

	inputs := make(map[string]*volume.InputVolume, len(inSecs))
	for _, name := range sortedKeys(inSecs) {
		sec := inSecs[name]
		kinds, err := volume.ParseInputKinds(sec.PPTypes)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", name, err)
		}
		v, err := volume.NewInputVolume(lookup(sec.Fnames), volume.InputOptions{
			StackOptions: volume.StackOptions{
				TargetSize: spatial(inSpecs[name]),
				AutoCrop:   sec.IsAutoCrop,
				Augment:    cfg.Params.IsDataAugmentation,
			},
			Preprocessing:  kinds,
			AffinityOutput: affinity,
		})
		if err != nil {
			return nil, fmt.Errorf("sample %d input %q: %w", id, name, err)
		}
		inputs[name] = v
	}

	outputs := make(map[string]*volume.OutputVolume, len(outs))
	for _, o := range outs {
		v, err := volume.NewOutputVolume(lookup(o.sec.Fnames), lookup(o.sec.Fmasks), volume.OutputOptions{
			StackOptions: volume.StackOptions{
				TargetSize: o.size,
				AutoCrop:   o.sec.IsAutoCrop,
				Augment:    cfg.Params.IsDataAugmentation,
			},
			Kind:      o.kind,
			Rebalance: cfg.Params.IsRebalance,
		})
		if err != nil {
			return nil, fmt.Errorf("sample %d output %q: %w", id, o.name, err)
		}
		outputs[o.name] = v
	}

	return NewPair(id, inputs, outputs)
}

// loadFiles reads every distinct path with at most numCores reads in flight.
func loadFiles(paths []string, reader FileReader, numCores int) (map[string]*volume.Array3, error) {
	uniq := make([]string, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			uniq = append(uniq, p)
		}
	}
	sort.Strings(uniq)

	vols := make([]*volume.Array3, len(uniq))
	var g errgroup.Group
	if numCores > 0 {
		g.SetLimit(numCores)
	}
	for i, p := range uniq {
		i, p := i, p
		g.Go(func() error {
			v, err := reader.Read(p)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", p, err)
			}
			vols[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*volume.Array3, len(uniq))
	for i, p := range uniq {
		out[p] = vols[i]
	}
	return out, nil
}

func spatial(dims [4]int) volume.Vec3 { return volume.Vec3{dims[1], dims[2], dims[3]} }
