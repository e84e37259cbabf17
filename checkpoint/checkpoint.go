// Package checkpoint persists and restores LeNet-5 parameters.
//
// The on-disk format is a JSON document with a nested "net" entry mapping
// parameter names to shaped weight arrays. Names may carry the "module."
// prefix left behind by distributed-training wrappers; loading strips it.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Nyquixt/TENT/nn"
	"github.com/Nyquixt/TENT/tensor"
)

const wrapperPrefix = "module."

// ParamData is a serialized parameter tensor.
type ParamData struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// Checkpoint is the persisted parameter mapping.
type Checkpoint struct {
	Net map[string]ParamData `json:"net"`
}

// Read parses a checkpoint file.
func Read(path string) (*Checkpoint, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	var ckpt Checkpoint
	if err := json.Unmarshal(raw, &ckpt); err != nil {
		return nil, fmt.Errorf("parse checkpoint: %w", err)
	}
	if ckpt.Net == nil {
		return nil, fmt.Errorf("checkpoint %s has no \"net\" entry", path)
	}
	return &ckpt, nil
}

// Write saves a model's parameters to path.
func Write(path string, model *nn.LeNet5) error {
	net := make(map[string]ParamData)
	for name, t := range model.NamedParams() {
		net[name] = ParamData{
			Shape: append([]int(nil), t.Shape...),
			Data:  append([]float64(nil), t.Data...),
		}
	}
	raw, err := json.MarshalIndent(Checkpoint{Net: net}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	return os.WriteFile(path, raw, 0o644)
}

// StripWrapperPrefix rewrites every key by removing all occurrences of the
// distributed-training wrapper prefix. The pass is idempotent; a collision
// between a rewritten key and an existing one is unspecified behavior and is
// not detected.
func StripWrapperPrefix(net map[string]ParamData) map[string]ParamData {
	out := make(map[string]ParamData, len(net))
	for key, value := range net {
		out[strings.ReplaceAll(key, wrapperPrefix, "")] = value
	}
	return out
}

// LoadBaseModel reads the checkpoint at path, strips the wrapper prefix and
// loads the parameters into a fresh LeNet-5. After stripping, the key set
// must exactly match the architecture's parameter names; any mismatch is an
// error.
func LoadBaseModel(path string) (*nn.LeNet5, error) {
	ckpt, err := Read(path)
	if err != nil {
		return nil, err
	}
	model := nn.NewLeNet5()
	if err := loadInto(model, StripWrapperPrefix(ckpt.Net)); err != nil {
		return nil, fmt.Errorf("checkpoint %s: %w", path, err)
	}
	return model, nil
}

func loadInto(model *nn.LeNet5, net map[string]ParamData) error {
	params := model.NamedParams()

	var missing, unexpected []string
	for name := range params {
		if _, ok := net[name]; !ok {
			missing = append(missing, name)
		}
	}
	for name := range net {
		if _, ok := params[name]; !ok {
			unexpected = append(unexpected, name)
		}
	}
	if len(missing) > 0 || len(unexpected) > 0 {
		sort.Strings(missing)
		sort.Strings(unexpected)
		return fmt.Errorf("parameter names do not match architecture (missing %v, unexpected %v)", missing, unexpected)
	}

	for name, target := range params {
		pd := net[name]
		src := &tensor.Tensor{Data: pd.Data, Shape: pd.Shape}
		if err := target.CopyFrom(src); err != nil {
			return fmt.Errorf("parameter %s: %w", name, err)
		}
	}
	return nil
}
