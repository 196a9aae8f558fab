package sample

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"volsampler/pkg/config"
	"volsampler/pkg/volume"
)

// memReader serves volumes from memory and counts reads per path.
type memReader struct {
	mu    sync.Mutex
	vols  map[string]*volume.Array3
	reads map[string]int
}

func newMemReader(vols map[string]*volume.Array3) *memReader {
	return &memReader{vols: vols, reads: make(map[string]int)}
}

func (r *memReader) Read(path string) (*volume.Array3, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads[path]++
	v, ok := r.vols[path]
	if !ok {
		return nil, fmt.Errorf("no such volume")
	}
	return v, nil
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Params.OutputDataKind = "boundary"
	cfg.Params.IsDataAugmentation = true
	cfg.Params.NumCores = 2
	cfg.Network = config.Network{
		Inputs:  map[string][]int{"input": {1, 3, 3, 3}},
		Outputs: map[string][]int{"output": {3, 3, 3, 3}},
	}
	cfg.Images = map[string]*config.ImageSection{
		"1": {Fnames: []string{"img"}, PPTypes: "standard3D"},
	}
	cfg.Labels = map[string]*config.LabelSection{
		"1": {Fnames: []string{"lbl"}, Fmasks: []string{"msk"}, PPTypes: "aff"},
	}
	cfg.Samples = map[string]map[string]int{
		"1": {"input": 1, "output": 1},
		"2": {"input": 1, "output": 1},
	}
	return cfg
}

func testReader() *memReader {
	msk := volume.NewArray3(volume.Vec3{5, 5, 5})
	for i := range msk.Data {
		msk.Data[i] = 1
	}
	return newMemReader(map[string]*volume.Array3{
		"img": rampVolume(volume.Vec3{5, 5, 5}),
		"lbl": cubeLabel(),
		"msk": msk,
	})
}

func TestBuild(t *testing.T) {
	cfg := testConfig()
	reader := testReader()
	c, err := Build(cfg, []int{1, 2}, &cfg.Network, reader)
	if err != nil {
		t.Fatalf("Failed to build collection: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("Expected 2 pairs, got %d", c.Len())
	}
	for path, n := range reader.reads {
		if n != 2 {
			t.Errorf("%s read %d times, expected once per sample", path, n)
		}
	}

	// the affinity label section narrows the input range even though the params say boundary
	p := c.Pair(0)
	if p.DeviationRange() != (volume.DeviationRange{}) {
		t.Errorf("Expected range 0--0, got %v", p.DeviationRange())
	}
	if p.Output("output").Kind() != volume.Affinity || p.Input("input") == nil {
		t.Errorf("Volumes not wired by layer name")
	}

	s, err := c.GetRandomSample()
	if err != nil {
		t.Fatalf("Failed to draw sample: %v", err)
	}
	if s.Outputs["output"].Dims() != [4]int{3, 3, 3, 3} || s.Masks["output"].Dims() != [4]int{3, 3, 3, 3} {
		t.Errorf("Unexpected output dims %v / %v", s.Outputs["output"].Dims(), s.Masks["output"].Dims())
	}
	if s.Inputs["input"].Dims() != [4]int{1, 3, 3, 3} {
		t.Errorf("Unexpected input dims %v", s.Inputs["input"].Dims())
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(cfg *config.Config)
		want   error
	}{
		{"unknown sample", func(cfg *config.Config) { cfg.Samples = nil }, volume.ErrInvalidConfiguration},
		{"unassigned layer", func(cfg *config.Config) { delete(cfg.Samples["1"], "output") }, volume.ErrInvalidConfiguration},
		{"missing label section", func(cfg *config.Config) { cfg.Samples["1"]["output"] = 9 }, volume.ErrInvalidConfiguration},
		{"bad input token", func(cfg *config.Config) { cfg.Images["1"].PPTypes = "standard5D" }, volume.ErrInvalidConfiguration},
		{"bad label token", func(cfg *config.Config) { cfg.Labels["1"].PPTypes = "boundary" }, volume.ErrInvalidConfiguration},
		{"oversized target", func(cfg *config.Config) { cfg.Network.Inputs["input"] = []int{1, 7, 7, 7} }, volume.ErrInvalidConfiguration},
		{"degenerate rebalance", func(cfg *config.Config) {
			cfg.Params.IsRebalance = true
			cfg.Labels["1"].Fnames = []string{"msk"}
		}, volume.ErrDegenerateStatistics},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.modify(cfg)
			_, err := BuildPair(cfg, 1, &cfg.Network, testReader())
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestBuildReadFailure(t *testing.T) {
	cfg := testConfig()
	cfg.Labels["1"].Fmasks = []string{"absent"}
	if _, err := BuildPair(cfg, 1, &cfg.Network, testReader()); err == nil {
		t.Error("Expected read failure")
	}
}
