package settings

// Message keys emitted by HandleUpdate. Display text lives in the i18n catalog.
const (
	KeyHostEmpty          = "hostname.empty"
	KeyPortEmpty          = "port.empty"
	KeyAdminsEmpty        = "admins.empty"
	KeyUserSuffixEmpty    = "usersuffix.empty"
	KeyGroupSuffixEmpty   = "groupsuffix.empty"
	KeyPasswordInvalid    = "password.invalid"
	KeyPasswordsDifferent = "passwords.different"
	KeyPasswordChanged    = "password.changed"
	KeySettingsSaving     = "settings.saving"
	KeySaveFailed         = "settings.save_failed"

	// KeyPasswordTooLong is reported when the store refuses the new password.
	KeyPasswordTooLong = "password.too_long"
)

// Field names a required setting.
type Field string

// Required fields in validation order.
const (
	FieldHost        Field = "host"
	FieldPort        Field = "port"
	FieldAdminString Field = "adminString"
	FieldUserSuffix  Field = "userSuffix"
	FieldGroupSuffix Field = "groupSuffix"
)

// EmptyKey returns the message key used when the field is empty.
func (f Field) EmptyKey() string {
	switch f {
	case FieldHost:
		return KeyHostEmpty
	case FieldPort:
		return KeyPortEmpty
	case FieldAdminString:
		return KeyAdminsEmpty
	case FieldUserSuffix:
		return KeyUserSuffixEmpty
	case FieldGroupSuffix:
		return KeyGroupSuffixEmpty
	}
	return string(f) + ".empty"
}
