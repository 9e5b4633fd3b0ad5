package votes

// Compose builds the body of a feedback issue: the description, an optional
// device information section, an optional contact line, then the vote marker.
func Compose(description, deviceInfo, contactEmail string, count int) string {
	body := description
	if deviceInfo != "" {
		body += SectionSeparator + DeviceInfoHeader + "\n" + deviceInfo
	}
	if contactEmail != "" {
		body += "\n\n" + ContactHeader + " " + contactEmail
	}
	return Encode(body, count)
}
