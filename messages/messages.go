// Package messages defines the flat routing-id / message-id enumeration
// space, object and update flags, and the fixed-layout records
// (ServerInfo, Control, CollatedPacket header, ObjectAttributes) shared
// by every handler.
package messages

// RoutingID selects the handler a packet is destined for.
type RoutingID uint16

// Reserved infrastructure routing ids.
const (
	RIDNull RoutingID = iota
	RIDServerInfo
	RIDControl
	RIDCollated
	RIDMesh
	RIDCamera
	RIDCategory
	RIDMaterial

	// RIDShapeHandlersStart is the first routing id reserved for shape handlers.
	RIDShapeHandlersStart RoutingID = 64
	// RIDUserStart is the first routing id available to user extensions.
	RIDUserStart RoutingID = 2048
)

// Built-in shape routing ids, starting at RIDShapeHandlersStart.
const (
	RIDSphere RoutingID = RIDShapeHandlersStart + iota
	RIDBox
	RIDCone
	RIDCylinder
	RIDCapsule
	RIDPlane
	RIDStar
	RIDArrow
	RIDMeshShape
	RIDMeshSet
	RIDPointCloud
	RIDText3D
	RIDText2D
	RIDPose

	RIDBuiltInLast = RIDPose
)

// ControlID enumerates message ids under RIDControl.
type ControlID uint16

const (
	CIDNull ControlID = iota
	// CIDFrame marks a change of frame; value32 is the tick delta (0 = default).
	CIDFrame
	// CIDCoordinateFrame changes the active CoordinateFrame (value32).
	CIDCoordinateFrame
	// CIDFrameCount sets the total expected frame count (value32), used in recordings.
	CIDFrameCount
	// CIDForceFrameFlush forces a render without advancing the frame clock.
	CIDForceFrameFlush
	// CIDReset drops all state and reseeds the frame number from value32.
	CIDReset
	// CIDKeyframe requests an internal snapshot marker (value32 = frame number).
	CIDKeyframe
	// CIDEnd marks the end of the stream; consumers may disconnect.
	CIDEnd
)

// CategoryMessageID enumerates message ids under RIDCategory.
type CategoryMessageID uint16

const (
	CMIDName CategoryMessageID = iota
)

// ObjectMessageID enumerates message ids shared by every shape handler.
type ObjectMessageID uint16

const (
	OIDNull ObjectMessageID = iota
	OIDCreate
	OIDUpdate
	OIDDestroy
	OIDData
)

// ObjectFlag controls shape creation/appearance semantics.
type ObjectFlag uint16

const (
	OFNone            ObjectFlag = 0
	OFDoublePrecision ObjectFlag = 1 << 0
	OFWire            ObjectFlag = 1 << 1
	OFTransparent     ObjectFlag = 1 << 2
	OFTwoSided        ObjectFlag = 1 << 3
	OFReplace         ObjectFlag = 1 << 4
	OFMultiShape      ObjectFlag = 1 << 5
	OFSkipResources   ObjectFlag = 1 << 6
	OFUser            ObjectFlag = 1 << 8
)

// PointsAttributeFlag marks optional per-point attribute streams.
type PointsAttributeFlag uint16

const (
	PAFNone    PointsAttributeFlag = 0
	PAFNormals PointsAttributeFlag = 1 << 0
	PAFColours PointsAttributeFlag = 1 << 1
)

// Text2DFlag extends ObjectFlag for the Text2D shape.
const Text2DFWorldSpace = ObjectFlag(OFUser)

// Text3DFlag extends ObjectFlag for the Text3D shape.
const Text3DFScreenFacing = ObjectFlag(OFUser)

// MeshShapeFlag extends ObjectFlag for the MeshShape shape.
const MeshShapeCalculateNormals = ObjectFlag(OFUser)

// UpdateFlag selects which ObjectAttributes sub-fields an Update message
// carries authoritative values for.
type UpdateFlag uint16

const (
	UFUpdateMode UpdateFlag = UpdateFlag(OFUser) << 1
	UFPosition   UpdateFlag = UpdateFlag(OFUser) << 2
	UFRotation   UpdateFlag = UpdateFlag(OFUser) << 3
	UFScale      UpdateFlag = UpdateFlag(OFUser) << 4
	UFColour     UpdateFlag = UpdateFlag(OFUser) << 5
)

// CollatedPacketFlag controls CollatedPacket encoding.
type CollatedPacketFlag uint16

const (
	CPFCompress CollatedPacketFlag = 1 << 0
)

// ControlFlag qualifies a ControlMessage's semantics.
type ControlFlag uint32

const (
	// CFFramePersist keeps transient shapes alive across this frame boundary.
	CFFramePersist ControlFlag = 1 << 0
)

// CoordinateFrame enumerates the 12 axis conventions a server may declare.
type CoordinateFrame uint8

const (
	CFXYZ CoordinateFrame = iota
	CFXZYNeg
	CFYXZNeg
	CFYZX
	CFZXY
	CFZYXNeg
	CFXYZNeg
	CFXZY
	CFYXZ
	CFYZXNeg
	CFZXYNeg
	CFZYX

	CFCount
	CFLeft = CFXYZNeg
)

// DataStreamType identifies the on-wire element encoding used by DataBuffer
// and the mesh/shape component streams.
type DataStreamType uint8

const (
	DctNone DataStreamType = iota
	DctInt8
	DctUInt8
	DctInt16
	DctUInt16
	DctInt32
	DctUInt32
	DctInt64
	DctUInt64
	DctFloat32
	DctFloat64
	// DctPackedFloat16 packs a float32 stream as i16s quantised by a
	// preceding f32 scale factor.
	DctPackedFloat16
	// DctPackedFloat32 packs a float64 stream as i32s quantised by a
	// preceding f64 scale factor.
	DctPackedFloat32
)
