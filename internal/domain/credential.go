package domain

// RedemptionCodeLength is the number of decimal digits in the human code.
const RedemptionCodeLength = 6

// IsRedemptionCode reports whether the input has the shape of a human code
// rather than an opaque QR payload.
func IsRedemptionCode(credential string) bool {
	if len(credential) != RedemptionCodeLength {
		return false
	}
	for _, r := range credential {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
