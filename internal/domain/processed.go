package domain

import "sort"

// ProcessedSet es el registro de amortiguación de trades ya manejados.
// No es fuente de verdad: los batches se recalculan siempre desde el estado remoto.
type ProcessedSet struct {
	ids   map[string]bool
	dirty bool
}

// NewProcessedSet crea un set con los IDs dados.
func NewProcessedSet(ids []string) *ProcessedSet {
	s := &ProcessedSet{ids: make(map[string]bool, len(ids))}
	for _, id := range ids {
		s.ids[id] = true
	}
	return s
}

// Add registra IDs y devuelve cuántos eran nuevos.
func (s *ProcessedSet) Add(ids ...string) int {
	added := 0
	for _, id := range ids {
		if id == "" || s.ids[id] {
			continue
		}
		s.ids[id] = true
		added++
	}
	if added > 0 {
		s.dirty = true
	}
	return added
}

// Has indica si el trade ya fue manejado en un ciclo anterior.
func (s *ProcessedSet) Has(id string) bool { return s.ids[id] }

// Len devuelve el tamaño del set.
func (s *ProcessedSet) Len() int { return len(s.ids) }

// Dirty indica si hubo cambios desde el último MarkClean.
func (s *ProcessedSet) Dirty() bool { return s.dirty }

// MarkClean se llama tras persistir.
func (s *ProcessedSet) MarkClean() { s.dirty = false }

// Retain elimina IDs que ya no aparecen en la cola del marketplace
// (verificados o cancelados), manteniendo el archivo acotado.
func (s *ProcessedSet) Retain(live []string) int {
	keep := make(map[string]bool, len(live))
	for _, id := range live {
		keep[id] = true
	}
	removed := 0
	for id := range s.ids {
		if !keep[id] {
			delete(s.ids, id)
			removed++
		}
	}
	if removed > 0 {
		s.dirty = true
	}
	return removed
}

// IDs devuelve los IDs ordenados (salida determinista en disco).
func (s *ProcessedSet) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
