package core

// SegmentInfo is the static presentation and accounting data of a segment.
type SegmentInfo struct {
	Type  TransactionType
	Label string
	Color string
}

// segmentTable is built once and never mutated. Every net/balance computation
// derives its sign from here.
var segmentTable = map[Segment]SegmentInfo{
	SegmentIngresos:        {Type: Income, Label: "Ingresos", Color: "#10B981"},
	SegmentAhorro:          {Type: Expense, Label: "Ahorro", Color: "#3B82F6"},
	SegmentGastosFijos:     {Type: Expense, Label: "Gastos Fijos", Color: "#F59E0B"},
	SegmentGastosVariables: {Type: Expense, Label: "Gastos Variables", Color: "#EF4444"},
}

var segmentOrder = [...]Segment{
	SegmentIngresos,
	SegmentAhorro,
	SegmentGastosFijos,
	SegmentGastosVariables,
}

// Segments returns the four segments in display order.
func Segments() []Segment {
	out := make([]Segment, len(segmentOrder))
	copy(out, segmentOrder[:])
	return out
}

func (s Segment) Valid() bool {
	_, ok := segmentTable[s]
	return ok
}

// Info returns the static data for s. Unknown segments yield the zero value.
func (s Segment) Info() SegmentInfo {
	return segmentTable[s]
}

// Type returns the transaction type a segment implies.
func (s Segment) Type() TransactionType {
	return segmentTable[s].Type
}

// Sign is +1 for income segments and -1 for expense segments.
func (s Segment) Sign() float64 {
	if s.Type() == Income {
		return 1
	}
	return -1
}

func (s Segment) Label() string {
	return segmentTable[s].Label
}

// defaultCategories is the active category list per segment offered by the
// entry form. Aggregators never check membership.
var defaultCategories = map[Segment][]string{
	SegmentIngresos: {
		"Salario", "Freelance", "Bonos", "Inversiones", "Ventas", "Otros Ingresos",
	},
	SegmentAhorro: {
		"Fondo de Emergencia", "Ahorro General", "Inversión", "Vacaciones", "Retiro",
	},
	SegmentGastosFijos: {
		"Alquiler", "Servicios", "Internet", "Teléfono", "Seguro", "Educación", "Transporte", "Suscripciones",
	},
	SegmentGastosVariables: {
		"Comida", "Mercado", "Salidas", "Ropa", "Salud", "Regalos", "Hogar", "Otros",
	},
}

// DefaultCategories returns a copy of the default category lists.
func DefaultCategories() map[Segment][]string {
	out := make(map[Segment][]string, len(defaultCategories))
	for seg, cats := range defaultCategories {
		out[seg] = append([]string(nil), cats...)
	}
	return out
}
