package settings

import "reflect"

// fragmentPrefix namespaces per-type configuration fragments.
const fragmentPrefix = "type:"

// FragmentName returns the setting name SetFragment uses for T.
func FragmentName[T any]() string {
	return fragmentPrefix + typeName(reflect.TypeOf((*T)(nil)).Elem())
}

func typeName(t reflect.Type) string {
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

// SetFragment stores the configuration fragment of type T.
func SetFragment[T any](s *Store, v T) error {
	return s.Set(FragmentName[T](), v)
}

// Fragment loads the configuration fragment of type T. The boolean is false
// if none was stored.
func Fragment[T any](s *Store) (T, bool, error) {
	var v T
	name := typeName(reflect.TypeOf((*T)(nil)).Elem())
	raw, ok := s.idx.Find(fragmentPrefix, name)
	if !ok {
		return v, false, nil
	}
	if err := decodeValue(fragmentPrefix+name, []byte(raw), &v); err != nil {
		return v, true, err
	}
	return v, true, nil
}

// FragmentNames lists the type names that have a stored fragment.
func (s *Store) FragmentNames() []string {
	names := s.NamesWithPrefix(fragmentPrefix)
	for i, n := range names {
		names[i] = n[len(fragmentPrefix):]
	}
	return names
}
