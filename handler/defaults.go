package handler

import (
	"github.com/tes-go/tes/category"
	"github.com/tes-go/tes/messages"
	"github.com/tes-go/tes/shapes"
)

// NewDefaultRegistry builds a registry with every built-in handler
// registered: camera, category (over tree), the mesh resource handler,
// and one Shapes handler per built-in shape routing id.
func NewDefaultRegistry(tree *category.Tree) *Registry {
	reg := &Registry{}
	reg.Register(NewCamera())
	reg.Register(NewCategory(tree))
	reg.Register(NewMesh())

	factories := []struct {
		id      messages.RoutingID
		factory ShapeFactory
	}{
		{messages.RIDSphere, func() shapes.Shape { return shapes.NewSphere() }},
		{messages.RIDBox, func() shapes.Shape { return shapes.NewBox() }},
		{messages.RIDCone, func() shapes.Shape { return shapes.NewCone() }},
		{messages.RIDCylinder, func() shapes.Shape { return shapes.NewCylinder() }},
		{messages.RIDCapsule, func() shapes.Shape { return shapes.NewCapsule() }},
		{messages.RIDPlane, func() shapes.Shape { return shapes.NewPlane() }},
		{messages.RIDStar, func() shapes.Shape { return shapes.NewStar() }},
		{messages.RIDArrow, func() shapes.Shape { return shapes.NewArrow() }},
		{messages.RIDPose, func() shapes.Shape { return shapes.NewPose() }},
		{messages.RIDText2D, func() shapes.Shape { return shapes.NewText2D() }},
		{messages.RIDText3D, func() shapes.Shape { return shapes.NewText3D() }},
		{messages.RIDMeshShape, func() shapes.Shape { return shapes.NewMeshShape() }},
		{messages.RIDMeshSet, func() shapes.Shape { return shapes.NewMeshSet() }},
		{messages.RIDPointCloud, func() shapes.Shape { return shapes.NewPointCloud(0) }},
	}
	for _, f := range factories {
		reg.Register(NewShapes(f.id, f.factory))
	}
	return reg
}
