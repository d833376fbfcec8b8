package entity

import "fmt"

// Kind identifies one of the ontology's entity kinds. The set is closed:
// store access, overlay targets, and validation all dispatch on it.
type Kind string

const (
	KindCategory  Kind = "category"
	KindProperty  Kind = "property"
	KindSubobject Kind = "subobject"
	KindModule    Kind = "module"
	KindBundle    Kind = "bundle"
	KindTemplate  Kind = "template"
)

var allKinds = []Kind{
	KindCategory,
	KindProperty,
	KindSubobject,
	KindModule,
	KindBundle,
	KindTemplate,
}

func Kinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

func ParseKind(s string) (Kind, error) {
	for _, kind := range allKinds {
		if string(kind) == s {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown entity kind: %s", s)
}

func (k Kind) Valid() bool {
	for _, kind := range allKinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}
