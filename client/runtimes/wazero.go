// Package runtimes provides Trainer implementations backed by external
// execution engines.
package runtimes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"

	"github.com/bladesteam/blades/client"
)

// The stdio contract with the guest: the host writes the trainable parameter
// blocks and the batch to stdin as JSON, the guest runs one optimization
// step and prints the stepped blocks and their gradients to stdout.
type stepRequest struct {
	Params map[string][]float64 `json:"params"`
	Batch  client.Batch         `json:"batch,omitempty"`
}

type stepResponse struct {
	Params map[string][]float64 `json:"params"`
	Grads  map[string][]float64 `json:"grads"`
}

// WasmTrainer runs local training steps inside a WASI module, one anonymous
// instantiation per step. The module is compiled once and must exit cleanly
// after printing its response.
type WasmTrainer struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	logger   *slog.Logger
}

// NewWasmTrainer prepares the WASI host functions and compiles the module.
func NewWasmTrainer(ctx context.Context, wasmBinary []byte, logger *slog.Logger) (*WasmTrainer, error) {
	r := wazero.NewRuntime(ctx)

	// Instantiate WASI, which implements host functions needed for TinyGo to
	// implement `panic`.
	wasi_snapshot_preview1.MustInstantiate(ctx, r)

	compiled, err := r.CompileModule(ctx, wasmBinary)
	if err != nil {
		_ = r.Close(ctx)

		return nil, errors.Join(errors.New("failed to compile Wasm module"), err)
	}

	return &WasmTrainer{runtime: r, compiled: compiled, logger: logger}, nil
}

// Step implements client.Trainer.
func (t *WasmTrainer) Step(ctx context.Context, params *client.ParamSet, batch client.Batch) error {
	req := stepRequest{Params: make(map[string][]float64, len(params.Params())), Batch: batch}
	for _, p := range params.Params() {
		if p.Grad == nil {
			continue
		}
		req.Params[p.Name] = p.Value
	}

	stdin, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode step request: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cfg := wazero.NewModuleConfig().
		WithName("").
		WithStdin(bytes.NewReader(stdin)).
		WithStdout(&stdout).
		WithStderr(&stderr)

	module, err := t.runtime.InstantiateModule(ctx, t.compiled, cfg)
	if module != nil {
		defer module.Close(ctx)
	}
	if err != nil {
		// A clean proc_exit(0) is the normal way for a WASI command
		// module to finish.
		var exitErr *sys.ExitError
		if !errors.As(err, &exitErr) || exitErr.ExitCode() != 0 {
			if stderr.Len() > 0 {
				t.logger.Error("wasm trainer step failed", slog.String("stderr", stderr.String()))
			}

			return errors.Join(errors.New("failed to run Wasm step"), err)
		}
	}

	var resp stepResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return fmt.Errorf("failed to decode step response: %w", err)
	}

	return applyResponse(params, resp)
}

// Close releases the runtime and the compiled module.
func (t *WasmTrainer) Close(ctx context.Context) error {
	return t.runtime.Close(ctx)
}

func applyResponse(params *client.ParamSet, resp stepResponse) error {
	for name, values := range resp.Params {
		p, ok := params.Param(name)
		if !ok || p.Grad == nil {
			return fmt.Errorf("guest returned unknown parameter %q", name)
		}
		if len(values) != len(p.Value) {
			return fmt.Errorf("guest returned %d values for parameter %q, want %d", len(values), name, len(p.Value))
		}
		copy(p.Value, values)
	}

	for name, grads := range resp.Grads {
		p, ok := params.Param(name)
		if !ok || p.Grad == nil {
			return fmt.Errorf("guest returned gradient for unknown parameter %q", name)
		}
		if len(grads) != len(p.Grad) {
			return fmt.Errorf("guest returned %d gradient entries for parameter %q, want %d", len(grads), name, len(p.Grad))
		}
		copy(p.Grad, grads)
	}

	return nil
}
