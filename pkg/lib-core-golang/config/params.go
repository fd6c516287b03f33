package config

import "github.com/pkg/errors"

// param is a typed config key. Nested keys are separated with "/"
type param interface {
	key() string
	emptyValue() paramValue
}

type paramImpl struct {
	paramKey string
}

func (p paramImpl) key() string {
	return p.paramKey
}

func (p paramImpl) String() string {
	return p.paramKey
}

func (p paramImpl) emptyValue() paramValue {
	panic(errors.Errorf("Parameter %v has no type", p.paramKey))
}

// StringParam is a param holding a string value
type StringParam struct{ paramImpl }

func newStringParam(key string) StringParam {
	return StringParam{paramImpl{paramKey: key}}
}

func (StringParam) emptyValue() paramValue {
	return StringVal{val: new(string)}
}

// IntParam is a param holding an int value
type IntParam struct{ paramImpl }

func newIntParam(key string) IntParam {
	return IntParam{paramImpl{paramKey: key}}
}

func (IntParam) emptyValue() paramValue {
	return IntVal{val: new(int)}
}

// BoolParam is a param holding a bool value
type BoolParam struct{ paramImpl }

func newBoolParam(key string) BoolParam {
	return BoolParam{paramImpl{paramKey: key}}
}

func (BoolParam) emptyValue() paramValue {
	return BoolVal{val: new(bool)}
}
