package block

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownBlock возвращается, если имя блока не зарегистрировано
	ErrUnknownBlock = errors.New("unknown block")
	// ErrBadDescriptor возвращается при синтаксической ошибке дескриптора
	ErrBadDescriptor = errors.New("bad block descriptor")
)

// Serialize возвращает дескриптор вида name[prop=value,...].
// Свойства выводятся в порядке, заданном поведением блока.
func Serialize(s State) string {
	behavior, ok := Get(s.ID)
	if !ok {
		return fmt.Sprintf("unknown_%d", s.ID)
	}

	props := behavior.Properties()
	if len(props) == 0 {
		return behavior.Name()
	}

	var sb strings.Builder
	sb.WriteString(behavior.Name())
	sb.WriteByte('[')
	for i, p := range props {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(p.Name())
		sb.WriteByte('=')
		sb.WriteString(propertyValue(s, p))
	}
	sb.WriteByte(']')
	return sb.String()
}

func propertyValue(s State, p Property) string {
	switch p {
	case PropFace:
		return s.Face.String()
	case PropFacing:
		return s.Facing.String()
	case PropLit:
		return fmt.Sprint(s.Lit)
	default:
		return fmt.Sprint(s.Powered)
	}
}

// Parse разбирает дескриптор name[prop=value,...].
// Префикс пространства имён ("minecraft:") игнорируется, не указанные
// свойства берутся из состояния по умолчанию.
func Parse(text string) (State, error) {
	text = strings.TrimSpace(text)
	name, rest, hasProps := strings.Cut(text, "[")
	if _, after, ok := strings.Cut(name, ":"); ok {
		name = after
	}
	if name == "" {
		return State{}, fmt.Errorf("%w: пустое имя блока", ErrBadDescriptor)
	}

	behavior, ok := Lookup(name)
	if !ok {
		return State{}, fmt.Errorf("%w: %q", ErrUnknownBlock, name)
	}
	state := behavior.DefaultState()
	if !hasProps {
		return state, nil
	}

	body, ok := strings.CutSuffix(rest, "]")
	if !ok {
		return State{}, fmt.Errorf("%w: нет закрывающей скобки", ErrBadDescriptor)
	}
	if strings.TrimSpace(body) == "" {
		return state, nil
	}

	allowed := behavior.Properties()
	for _, pair := range strings.Split(body, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return State{}, fmt.Errorf("%w: ожидалось key=value, получено %q", ErrBadDescriptor, pair)
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		prop, found := findProperty(allowed, key)
		if !found {
			return State{}, fmt.Errorf("%w: у %s нет свойства %q", ErrBadDescriptor, name, key)
		}
		if err := setProperty(&state, prop, value); err != nil {
			return State{}, err
		}
	}
	return state, nil
}

func findProperty(allowed []Property, key string) (Property, bool) {
	for _, p := range allowed {
		if p.Name() == key {
			return p, true
		}
	}
	return 0, false
}

func setProperty(s *State, p Property, value string) error {
	switch p {
	case PropFace:
		face, ok := parseFace(value)
		if !ok {
			return fmt.Errorf("%w: face=%q", ErrBadDescriptor, value)
		}
		s.Face = face
	case PropFacing:
		dir, ok := parseDirection(value)
		if !ok {
			return fmt.Errorf("%w: facing=%q", ErrBadDescriptor, value)
		}
		s.Facing = dir
	case PropLit, PropPowered:
		var b bool
		switch value {
		case "true":
			b = true
		case "false":
			b = false
		default:
			return fmt.Errorf("%w: %s=%q", ErrBadDescriptor, p.Name(), value)
		}
		if p == PropLit {
			s.Lit = b
		} else {
			s.Powered = b
		}
	}
	return nil
}
