package statecraft

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/aretw0/statecraft/pkg/machines/form"
	"github.com/aretw0/statecraft/pkg/machines/navigation"
	"github.com/aretw0/statecraft/pkg/machines/network"
	"github.com/aretw0/statecraft/pkg/machines/syncing"
	"github.com/aretw0/statecraft/pkg/machines/toast"
	"github.com/aretw0/statecraft/pkg/schema"
)

var (
	fieldEdit = schema.Schema{
		"fieldId":  schema.String(),
		"value":    schema.String(),
		"editedBy": schema.Optional(schema.String()),
		"editedAt": schema.Optional(schema.String()),
	}
	toastID = schema.Schema{"id": schema.String()}
)

// eventSchemas lists the events each machine handles. A nil schema means the
// event carries no payload.
var eventSchemas = map[string]map[string]schema.Schema{
	MachineForm: {
		form.EventUpdateField:  fieldEdit,
		form.EventRemoteUpdate: fieldEdit,
		form.EventRevertField: {
			"fieldId":      schema.String(),
			"historyIndex": schema.IntAtLeast(0),
		},
	},
	MachineNetwork: {
		network.EventConnect:    {"delay": schema.Optional(schema.IntAtLeast(0))},
		network.EventDisconnect: nil,
	},
	MachineSync: {
		syncing.EventGoOnline:       nil,
		syncing.EventGoOffline:      nil,
		syncing.EventDocumentSynced: {"documentId": schema.String()},
		syncing.EventReset:          nil,
	},
	MachineNavigation: {
		navigation.EventNext: nil,
		navigation.EventPrev: nil,
		navigation.EventGoTo: {
			"slide": schema.Object(schema.Schema{
				"example": schema.String(),
				"view":    schema.String(),
			}),
		},
	},
	MachineToasts: {
		toast.EventAddToast: {
			"toast": schema.Object(schema.Schema{
				"message": schema.String(),
				"type": schema.Optional(schema.Enum(
					string(toast.SeveritySuccess),
					string(toast.SeverityError),
					string(toast.SeverityInfo),
					string(toast.SeverityWarning),
				)),
				"duration": schema.Optional(schema.IntAtLeast(0)),
				"id":       schema.Optional(schema.String()),
			}),
		},
		toast.EventRemoveToast:  toastID,
		toast.EventDismissToast: toastID,
		toast.EventHoverToast:   toastID,
		toast.EventUnhoverToast: toastID,
		toast.EventClearAll:     nil,
	},
}

// Events returns the events machine handles with their payload schemas.
func (s *System) Events(machine string) (map[string]schema.Schema, error) {
	events, ok := eventSchemas[machine]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownMachine, machine)
	}
	return maps.Clone(events), nil
}

// checkEvent brings an external event to its JSON shape, cleans its strings
// and validates the payload of known event types. Unknown types pass through
// and are dropped by the machine.
func checkEvent(machine string, ev domain.Event) (domain.Event, error) {
	if ev.Type == "" {
		return ev, fmt.Errorf("%w: missing event type", domain.ErrInvalidEvent)
	}
	if ev.Payload != nil {
		if err := schema.CheckUTF8(ev.Payload); err != nil {
			return ev, fmt.Errorf("%w: %s: %v", domain.ErrInvalidEvent, ev.Type, err)
		}
		data, err := json.Marshal(ev.Payload)
		if err != nil {
			return ev, fmt.Errorf("%w: %s: %v", domain.ErrInvalidEvent, ev.Type, err)
		}
		var payload map[string]any
		if err := json.Unmarshal(data, &payload); err != nil {
			return ev, fmt.Errorf("%w: %s: %v", domain.ErrInvalidEvent, ev.Type, err)
		}
		if err := schema.SanitizePayload(payload); err != nil {
			return ev, fmt.Errorf("%w: %s: %v", domain.ErrInvalidEvent, ev.Type, err)
		}
		ev.Payload = payload
	}
	if s, known := eventSchemas[machine][ev.Type]; known {
		if err := schema.Validate(s, ev.Payload); err != nil {
			return ev, fmt.Errorf("%w: %s: %v", domain.ErrInvalidEvent, ev.Type, err)
		}
	}
	return ev, nil
}
