// Package m8 implements the .m8 typed-section container file format
// (spec.md §3, §4.4, §6): a small fixed header, followed by a sequence of
// typed, length-prefixed sections, followed by a trailing CRC32 over
// everything before it.
package m8

// SectionType identifies the kind of payload a section carries. Type IDs
// 0x01-0x11 are reserved by spec.md §3; readers must skip any other value
// rather than reject the file.
type SectionType uint8

const (
	SectionIdentity           SectionType = 0x01
	SectionContext            SectionType = 0x02
	SectionStructure          SectionType = 0x03
	SectionCompilation        SectionType = 0x04
	SectionCache              SectionType = 0x05
	SectionAIContext          SectionType = 0x06
	SectionRelationships      SectionType = 0x07
	SectionSensorArbitration  SectionType = 0x08
	SectionMarkqantDoc        SectionType = 0x09
	SectionQuantumTree        SectionType = 0x0A
	SectionCodeRelations      SectionType = 0x0B
	SectionBuildArtifacts     SectionType = 0x0C
	SectionTemporalIndex      SectionType = 0x0D
	SectionCollectiveEmotion  SectionType = 0x0E
	SectionWaveMemoryBlob     SectionType = 0x0F
	SectionReactiveStateDump  SectionType = 0x10
	SectionCustodianNotes     SectionType = 0x11
)

func (t SectionType) String() string {
	switch t {
	case SectionIdentity:
		return "Identity"
	case SectionContext:
		return "Context"
	case SectionStructure:
		return "Structure"
	case SectionCompilation:
		return "Compilation"
	case SectionCache:
		return "Cache"
	case SectionAIContext:
		return "AIContext"
	case SectionRelationships:
		return "Relationships"
	case SectionSensorArbitration:
		return "SensorArbitration"
	case SectionMarkqantDoc:
		return "MarkqantDoc"
	case SectionQuantumTree:
		return "QuantumTree"
	case SectionCodeRelations:
		return "CodeRelations"
	case SectionBuildArtifacts:
		return "BuildArtifacts"
	case SectionTemporalIndex:
		return "TemporalIndex"
	case SectionCollectiveEmotion:
		return "CollectiveEmotion"
	case SectionWaveMemoryBlob:
		return "WaveMemoryBlob"
	case SectionReactiveStateDump:
		return "ReactiveStateDump"
	case SectionCustodianNotes:
		return "CustodianNotes"
	default:
		return "Unknown"
	}
}

// Section is one typed, length-prefixed record in a .m8 file. Payload is
// always the uncompressed bytes: the Writer compresses on Finish and the
// Reader decompresses on Open. See compressibleSections in writer.go for
// which section types are eligible for compression.
type Section struct {
	Type    SectionType
	Payload []byte
}
