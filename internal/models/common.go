// server/internal/models/common.go
package models

// Address is the structured pickup location.
type Address struct {
	FullText  string  `bson:"fullText" json:"fullText" binding:"required"`
	Latitude  float64 `bson:"latitude" json:"latitude" binding:"min=-90,max=90"`
	Longitude float64 `bson:"longitude" json:"longitude" binding:"min=-180,max=180"`
}

// MaterialType is the closed set of recyclable material kinds.
type MaterialType string

const (
	MaterialPaper       MaterialType = "paper"
	MaterialPlastic     MaterialType = "plastic"
	MaterialMetal       MaterialType = "metal"
	MaterialGlass       MaterialType = "glass"
	MaterialElectronics MaterialType = "electronics"
	MaterialMixed       MaterialType = "mixed"
)

// MaterialTypes lists every accepted material type.
var MaterialTypes = []MaterialType{
	MaterialPaper,
	MaterialPlastic,
	MaterialMetal,
	MaterialGlass,
	MaterialElectronics,
	MaterialMixed,
}

func (t MaterialType) Valid() bool {
	for _, known := range MaterialTypes {
		if t == known {
			return true
		}
	}
	return false
}

// TimeSlot is one of the four fixed collection windows of a day.
type TimeSlot string

const (
	SlotEarlyMorning  TimeSlot = "08:00-10:00"
	SlotLateMorning   TimeSlot = "10:00-12:00"
	SlotAfternoon     TimeSlot = "13:00-15:00"
	SlotLateAfternoon TimeSlot = "15:00-17:00"
)

var TimeSlots = []TimeSlot{SlotEarlyMorning, SlotLateMorning, SlotAfternoon, SlotLateAfternoon}

func (s TimeSlot) Valid() bool {
	for _, known := range TimeSlots {
		if s == known {
			return true
		}
	}
	return false
}
