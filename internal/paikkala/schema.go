// Package paikkala provisions seat reservation programs for programmes held in rooms with
// a registered seating layout.
package paikkala

import (
	"fmt"
	"sort"
	"sync"
)

type RowSpec struct {
	Name      string
	StartSeat int
	EndSeat   int
}

type ZoneSpec struct {
	Name string
	Rows []RowSpec
}

// Schema describes the seating of one physical room.
type Schema struct {
	Name  string
	Zones []ZoneSpec
}

func (s Schema) Capacity() int {
	n := 0
	for _, z := range s.Zones {
		for _, r := range z.Rows {
			n += r.EndSeat - r.StartSeat + 1
		}
	}
	return n
}

func (s Schema) validate() error {
	if s.Name == "" {
		return fmt.Errorf("paikkala schema without a name")
	}
	for _, z := range s.Zones {
		for _, r := range z.Rows {
			if r.EndSeat < r.StartSeat {
				return fmt.Errorf("schema %s zone %s row %s: end seat before start seat", s.Name, z.Name, r.Name)
			}
		}
	}
	return nil
}

var (
	mu      sync.RWMutex
	schemas = map[string]Schema{}
)

func Register(s Schema) {
	if err := s.validate(); err != nil {
		panic(err)
	}
	mu.Lock()
	defer mu.Unlock()
	schemas[s.Name] = s
}

func Lookup(name string) (Schema, bool) {
	mu.RLock()
	defer mu.RUnlock()
	s, ok := schemas[name]
	return s, ok
}

func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(schemas))
	for n := range schemas {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// rows builds numbered rows for a simple rectangular block.
func rows(count, seatsPerRow int) []RowSpec {
	out := make([]RowSpec, 0, count)
	for i := 1; i <= count; i++ {
		out = append(out, RowSpec{Name: fmt.Sprint(i), StartSeat: 1, EndSeat: seatsPerRow})
	}
	return out
}

func init() {
	Register(Schema{
		Name: "tampere-talo/iso-sali",
		Zones: []ZoneSpec{
			{Name: "Permanto", Rows: rows(20, 40)},
			{Name: "Parvi", Rows: rows(8, 30)},
		},
	})
	Register(Schema{
		Name: "tampere-talo/pieni-sali",
		Zones: []ZoneSpec{
			{Name: "Permanto", Rows: rows(12, 20)},
		},
	})
	Register(Schema{
		Name: "kaapelitehdas/pannuhalli",
		Zones: []ZoneSpec{
			{Name: "Katsomo", Rows: rows(10, 25)},
		},
	})
}
