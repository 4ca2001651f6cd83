package transcript

// MatchThreshold is the minimum enrollment confidence, inclusive, for a
// segment to be attributed to an enrolled family voice.
const MatchThreshold = 0.70

// RoleResolver converts a segment's raw label and enrollment match
// state into a final role. The policy is priority ordered: an
// enrollment match above the threshold always wins over whatever the
// diarization service labeled the segment.
type RoleResolver struct {
	threshold float64
}

// NewRoleResolver creates a resolver. A non-positive threshold selects
// MatchThreshold.
func NewRoleResolver(threshold float64) *RoleResolver {
	if threshold <= 0 {
		threshold = MatchThreshold
	}
	return &RoleResolver{threshold: threshold}
}

// Resolve assigns the segment's role, normalizing its label and
// clamping its confidence on the way through. The segment is mutated in
// place.
func (r *RoleResolver) Resolve(seg *Segment) {
	seg.Speaker = NormalizeLabel(seg.Speaker)
	seg.Confidence = clamp01(seg.Confidence)
	seg.EnrollmentConfidence = clamp01(seg.EnrollmentConfidence)

	if seg.EnrollmentConfidence >= r.threshold {
		seg.Speaker = "SPEAKER_2"
		seg.Role = RolePatientFamily
		seg.EnrollmentMatch = true
		seg.AssignmentMethod = MethodEnrollmentMatch
		return
	}

	seg.Speaker = "SPEAKER_1"
	seg.Role = RoleProvider
	seg.EnrollmentMatch = false
	seg.MatchedSpeaker = ""
	seg.AssignmentMethod = MethodDefaultProvider
}

// ResolveAll applies Resolve to every segment in order.
func (r *RoleResolver) ResolveAll(segments []Segment) {
	for i := range segments {
		r.Resolve(&segments[i])
	}
}
