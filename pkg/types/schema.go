package types

// Primitive property types use the Edm vocabulary. A Property.Type holding
// any other string names a declared ComplexType.
const (
	EdmString   = "Edm.String"
	EdmInt32    = "Edm.Int32"
	EdmDouble   = "Edm.Double"
	EdmSingle   = "Edm.Single"
	EdmBoolean  = "Edm.Boolean"
	EdmDateTime = "Edm.DateTime"
)

// edmTypes is the set of recognized primitive type names.
var edmTypes = map[string]bool{
	EdmString:   true,
	EdmInt32:    true,
	EdmDouble:   true,
	EdmSingle:   true,
	EdmBoolean:  true,
	EdmDateTime: true,
}

// IsEdmType reports whether name is a primitive Edm type.
func IsEdmType(name string) bool {
	return edmTypes[name]
}

// Collection kinds for declared properties.
const (
	CollectionKindNone = "None"
	CollectionKindList = "List"
)

// Association end multiplicities.
const (
	MultiplicityZeroOne = "0..1"
	MultiplicityOne     = "1"
	MultiplicityMany    = "*"
)

// ValidMultiplicity reports whether m is a recognized multiplicity.
func ValidMultiplicity(m string) bool {
	return m == MultiplicityZeroOne || m == MultiplicityOne || m == MultiplicityMany
}

// EntityType is a runtime-declared schema for entity instances, unique by
// name within a schema scope. Properties holds the declared properties in
// declaration order.
type EntityType struct {
	Name       string
	Properties []*Property
}

// Property returns the declared property with the given name, or nil.
func (et *EntityType) Property(name string) *Property {
	for _, p := range et.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// ComplexType is a runtime-declared nested structure usable as a property
// type. Complex types may nest other complex types to unbounded depth.
type ComplexType struct {
	Name       string
	Properties []*ComplexTypeProperty
}

// Property returns the declared property with the given name, or nil.
func (ct *ComplexType) Property(name string) *ComplexTypeProperty {
	for _, p := range ct.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Property declares one attribute of an EntityType.
//
// Type is an Edm primitive name or the name of a declared ComplexType.
// DefaultValue, when non-nil, is substituted for omitted or null values on
// create. CollectionKind is None for scalar properties and List for
// homogeneous arrays of the base type.
type Property struct {
	Name           string
	Type           string
	Nullable       bool
	DefaultValue   any
	CollectionKind string
	IsKey          bool
	IsUnique       bool
}

// ComplexTypeProperty declares one attribute of a ComplexType. The shape is
// identical to Property; the two are kept distinct because they are declared
// and persisted through separate schema-admin operations.
type ComplexTypeProperty struct {
	Name           string
	Type           string
	Nullable       bool
	DefaultValue   any
	CollectionKind string
}

// AssociationEnd is one side of a declared relationship, carrying the
// entity type it attaches to and the multiplicity contract for that side.
type AssociationEnd struct {
	Name         string
	EntityType   string
	Multiplicity string
}

// Association joins two AssociationEnds into a typed relationship between
// two entity types. The pair is direction-agnostic: either end may be used
// as the source of a link operation.
type Association struct {
	Name string
	Ends [2]AssociationEnd
}

// End returns the association end attached to the given entity type, or nil.
func (a *Association) End(entityType string) *AssociationEnd {
	if a.Ends[0].EntityType == entityType {
		return &a.Ends[0]
	}
	if a.Ends[1].EntityType == entityType {
		return &a.Ends[1]
	}
	return nil
}

// OtherEnd returns the association end opposite the given entity type, or
// nil when the type participates in neither end.
func (a *Association) OtherEnd(entityType string) *AssociationEnd {
	if a.Ends[0].EntityType == entityType {
		return &a.Ends[1]
	}
	if a.Ends[1].EntityType == entityType {
		return &a.Ends[0]
	}
	return nil
}
