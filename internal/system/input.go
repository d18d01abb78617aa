package system

import (
	"encoding/json"
	"fmt"

	"github.com/forgesim/server/internal/core/ecs"
	coresys "github.com/forgesim/server/internal/core/system"
)

// Input kinds understood by the systems in this package.
const (
	KindSpawn   = "spawn"
	KindDamage  = "damage"
	KindRefuel  = "refuel"
	KindDestroy = "destroy"
)

// SpawnInput instantiates a template Count times.
type SpawnInput struct {
	Template string `json:"template"`
	Count    int    `json:"count"`
}

func (SpawnInput) Kind() string { return KindSpawn }

// DamageInput removes hit points from one entity.
type DamageInput struct {
	Entity ecs.EntityID `json:"entity"`
	Amount int32        `json:"amount"`
}

func (DamageInput) Kind() string { return KindDamage }

// RefuelInput grants energy to every entity holding Energy.
type RefuelInput struct {
	Amount int32 `json:"amount"`
}

func (RefuelInput) Kind() string { return KindRefuel }

// DestroyInput destroys one entity.
type DestroyInput struct {
	Entity ecs.EntityID `json:"entity"`
}

func (DestroyInput) Kind() string { return KindDestroy }

// DecodeInput builds an input of the given kind from its JSON payload, the
// form inputs take on the command stream and in the journal.
func DecodeInput(kind string, payload []byte) (coresys.Input, error) {
	var in coresys.Input
	var err error
	switch kind {
	case KindSpawn:
		var v SpawnInput
		err = json.Unmarshal(payload, &v)
		in = v
	case KindDamage:
		var v DamageInput
		err = json.Unmarshal(payload, &v)
		in = v
	case KindRefuel:
		var v RefuelInput
		err = json.Unmarshal(payload, &v)
		in = v
	case KindDestroy:
		var v DestroyInput
		err = json.Unmarshal(payload, &v)
		in = v
	default:
		return nil, fmt.Errorf("unknown input kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s input: %w", kind, err)
	}
	return in, nil
}

// DecodeCommand decodes one command line: a JSON object whose "kind" field
// selects the input type and whose remaining fields are its payload.
func DecodeCommand(line []byte) (coresys.Input, error) {
	var head struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(line, &head); err != nil {
		return nil, fmt.Errorf("decode command: %w", err)
	}
	if head.Kind == "" {
		return nil, fmt.Errorf("decode command: missing kind")
	}
	return DecodeInput(head.Kind, line)
}
