package types

// Classification is the closed-set tag describing which intake path a client
// follows. Routing and analytics key off it by value.
type Classification string

const (
	ClassificationFullProgram     Classification = "FULL_PROGRAM"
	ClassificationNutritionOnly   Classification = "NUTRITION_ONLY"
	ClassificationWorkoutOnly     Classification = "WORKOUT_ONLY"
	ClassificationPerformance     Classification = "PERFORMANCE_PROGRAM"
	ClassificationYouth           Classification = "YOUTH_PROGRAM"
	ClassificationRecovery        Classification = "RECOVERY_PROGRAM"
	ClassificationWellness        Classification = "WELLNESS_PROGRAM"
)

var classificationSet = map[Classification]struct{}{
	ClassificationFullProgram:   {},
	ClassificationNutritionOnly: {},
	ClassificationWorkoutOnly:   {},
	ClassificationPerformance:   {},
	ClassificationYouth:         {},
	ClassificationRecovery:      {},
	ClassificationWellness:      {},
}

func (c Classification) Valid() bool {
	_, ok := classificationSet[c]
	return ok
}

// PacketType identifies one kind of generated document.
type PacketType string

const (
	PacketTypeIntro       PacketType = "INTRO"
	PacketTypeNutrition   PacketType = "NUTRITION"
	PacketTypeWorkout     PacketType = "WORKOUT"
	PacketTypePerformance PacketType = "PERFORMANCE"
	PacketTypeYouth       PacketType = "YOUTH"
	PacketTypeRecovery    PacketType = "RECOVERY"
	PacketTypeWellness    PacketType = "WELLNESS"
)

var packetTypeSet = map[PacketType]struct{}{
	PacketTypeIntro:       {},
	PacketTypeNutrition:   {},
	PacketTypeWorkout:     {},
	PacketTypePerformance: {},
	PacketTypeYouth:       {},
	PacketTypeRecovery:    {},
	PacketTypeWellness:    {},
}

func (t PacketType) Valid() bool {
	_, ok := packetTypeSet[t]
	return ok
}

// PacketStatus is the lifecycle state of a packet.
//
//	PENDING → GENERATING → READY → (APPROVED) → SENT
//	PENDING/GENERATING → FAILED
type PacketStatus string

const (
	PacketStatusPending    PacketStatus = "PENDING"
	PacketStatusGenerating PacketStatus = "GENERATING"
	PacketStatusReady      PacketStatus = "READY"
	PacketStatusApproved   PacketStatus = "APPROVED"
	PacketStatusSent       PacketStatus = "SENT"
	PacketStatusFailed     PacketStatus = "FAILED"
)

var packetStatusSet = map[PacketStatus]struct{}{
	PacketStatusPending:    {},
	PacketStatusGenerating: {},
	PacketStatusReady:      {},
	PacketStatusApproved:   {},
	PacketStatusSent:       {},
	PacketStatusFailed:     {},
}

func (s PacketStatus) Valid() bool {
	_, ok := packetStatusSet[s]
	return ok
}

// Active reports whether a packet in this status still represents the current
// generation attempt for its (client, type) pair.
func (s PacketStatus) Active() bool {
	return s != PacketStatusFailed
}

// Sendable reports whether a send is permitted from this status.
func (s PacketStatus) Sendable() bool {
	return s == PacketStatusReady || s == PacketStatusApproved
}
