package types

// WorkItem is a selectable work process.
type WorkItem struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Equipment is a selectable piece of site equipment.
type Equipment struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// WorkItems is the catalog of work processes offered for selection.
var WorkItems = []WorkItem{
	{Value: "rebar", Label: "철근작업"},
	{Value: "concrete", Label: "콘크리트타설"},
	{Value: "scaffold", Label: "비계설치"},
	{Value: "demolition", Label: "해체작업"},
	{Value: "welding", Label: "용접작업"},
	{Value: "painting", Label: "도장작업"},
	{Value: "excavation", Label: "굴착작업"},
	{Value: "formwork", Label: "거푸집작업"},
	{Value: "steel", Label: "철골작업"},
	{Value: "masonry", Label: "조적작업"},
}

// EquipmentItems is the catalog of equipment offered for selection.
var EquipmentItems = []Equipment{
	{Value: "crane", Label: "크레인"},
	{Value: "forklift", Label: "지게차"},
	{Value: "mixer", Label: "콘크리트믹서"},
	{Value: "excavator", Label: "굴착기"},
	{Value: "bulldozer", Label: "불도저"},
	{Value: "loader", Label: "로더"},
	{Value: "dump-truck", Label: "덤프트럭"},
	{Value: "concrete-pump", Label: "콘크리트펌프"},
	{Value: "tower-crane", Label: "타워크레인"},
	{Value: "welding-machine", Label: "용접기"},
}

// DefaultProcess is the process description used before the user selects one.
const DefaultProcess = "기계설비공사 > 배관공사 > 강관 > 용접접합"

// DefaultEquipment is the equipment selected before the user picks one.
const DefaultEquipment = "덤프트럭"

// FindWorkItem looks up a work item by value or label.
func FindWorkItem(key string) (WorkItem, bool) {
	for _, w := range WorkItems {
		if w.Value == key || w.Label == key {
			return w, true
		}
	}
	return WorkItem{}, false
}

// FindEquipment looks up equipment by value or label.
func FindEquipment(key string) (Equipment, bool) {
	for _, e := range EquipmentItems {
		if e.Value == key || e.Label == key {
			return e, true
		}
	}
	return Equipment{}, false
}
