package quote

// Status is the lifecycle stage of a quote
type Status string

const (
	StatusPendiente   Status = "PENDIENTE"
	StatusEnProceso   Status = "EN_PROCESO"
	StatusProduccion  Status = "PRODUCCION"
	StatusInstalacion Status = "INSTALACION"
	StatusEntrega     Status = "ENTREGA"
	StatusCancelada   Status = "CANCELADA"
)

// lifecycle is the ordered main path; progress is linear over it
var lifecycle = []Status{
	StatusPendiente,
	StatusEnProceso,
	StatusProduccion,
	StatusInstalacion,
	StatusEntrega,
}

// AllStatuses returns every status in display order
func AllStatuses() []Status {
	out := make([]Status, 0, len(lifecycle)+1)
	out = append(out, lifecycle...)
	return append(out, StatusCancelada)
}

// IsValid reports whether the status is known
func (s Status) IsValid() bool {
	return s == StatusCancelada || s.stage() >= 0
}

// IsTerminal reports whether no further changes are allowed
func (s Status) IsTerminal() bool {
	return s == StatusEntrega || s == StatusCancelada
}

// Progress returns the completion percentage of a lifecycle status:
// 0 for PENDIENTE up to 100 for ENTREGA in equal steps.
// CANCELADA has no progress of its own and returns -1.
func (s Status) Progress() int {
	stage := s.stage()
	if stage < 0 {
		return -1
	}
	return stage * 100 / (len(lifecycle) - 1)
}

// CanTransitionTo reports whether a quote may move from s to target.
// Quotes only move forward; skipping stages is allowed.
func (s Status) CanTransitionTo(target Status) bool {
	if s.IsTerminal() || !target.IsValid() || s == target {
		return false
	}
	if target == StatusCancelada {
		return true
	}
	return target.stage() > s.stage()
}

// Label returns the customer-facing Spanish label
func (s Status) Label() string {
	switch s {
	case StatusPendiente:
		return "Pendiente"
	case StatusEnProceso:
		return "En proceso"
	case StatusProduccion:
		return "En producción"
	case StatusInstalacion:
		return "En instalación"
	case StatusEntrega:
		return "Entregado"
	case StatusCancelada:
		return "Cancelada"
	}
	return string(s)
}

func (s Status) stage() int {
	for i, st := range lifecycle {
		if st == s {
			return i
		}
	}
	return -1
}
