package domain

// BloodType is one of the eight ABO/Rh groups.
type BloodType string

const (
	BloodTypeOPositive  BloodType = "O+"
	BloodTypeONegative  BloodType = "O-"
	BloodTypeAPositive  BloodType = "A+"
	BloodTypeANegative  BloodType = "A-"
	BloodTypeBPositive  BloodType = "B+"
	BloodTypeBNegative  BloodType = "B-"
	BloodTypeABPositive BloodType = "AB+"
	BloodTypeABNegative BloodType = "AB-"
)

// BloodTypes lists all valid groups in display order.
func BloodTypes() []BloodType {
	return []BloodType{
		BloodTypeOPositive, BloodTypeONegative,
		BloodTypeAPositive, BloodTypeANegative,
		BloodTypeBPositive, BloodTypeBNegative,
		BloodTypeABPositive, BloodTypeABNegative,
	}
}

// ParseBloodType validates a raw string against the known groups.
func ParseBloodType(s string) (BloodType, error) {
	bt := BloodType(s)
	if !bt.Valid() {
		return "", ErrUnknownBloodType
	}
	return bt, nil
}

func (bt BloodType) Valid() bool {
	switch bt {
	case BloodTypeOPositive, BloodTypeONegative,
		BloodTypeAPositive, BloodTypeANegative,
		BloodTypeBPositive, BloodTypeBNegative,
		BloodTypeABPositive, BloodTypeABNegative:
		return true
	}
	return false
}
