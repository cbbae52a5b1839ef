package i18n

import "golang.org/x/text/language"

type languageTexts struct {
	tag      language.Tag
	messages map[string]string
}

var texts = []languageTexts{
	{language.English, english},
	{language.German, german},
}

var english = map[string]string{
	"hostname.empty":       "Hostname is empty!",
	"port.empty":           "Portnumber is empty!",
	"admins.empty":         "List of admin users is empty!",
	"usersuffix.empty":     "UserSuffix is empty!",
	"groupsuffix.empty":    "GroupSuffix is empty!",
	"password.invalid":     "Wrong password!",
	"passwords.different":  "Passwords are different!",
	"password.changed":     "Password changed!",
	"settings.saving":      "Saving the following settings:",
	"settings.save_failed": "Unable to save the settings!",
	"password.too_long":    "Password is too long!",
	"request.invalid":      "Invalid request.",
	"request.too_many":     "Too many attempts, please wait a minute.",

	"login.title":  "LAM Configuration Login",
	"login.prompt": "Please enter the configuration password:",
	"login.submit": "Login",

	"form.title":           "LAM Configuration",
	"form.password":        "Configuration password",
	"form.host":            "Hostname",
	"form.port":            "Portnumber",
	"form.admins":          "List of valid users (separated by ;)",
	"form.ssl":             "Use SSL",
	"form.usersuffix":      "UserSuffix",
	"form.groupsuffix":     "GroupSuffix",
	"form.hostsuffix":      "HostSuffix",
	"form.newpassword":     "New password",
	"form.confirmpassword": "Reenter password",
	"form.submit":          "Submit",
}

var german = map[string]string{
	"hostname.empty":       "Der Hostname ist leer!",
	"port.empty":           "Die Portnummer ist leer!",
	"admins.empty":         "Die Liste der Administratoren ist leer!",
	"usersuffix.empty":     "Das UserSuffix ist leer!",
	"groupsuffix.empty":    "Das GroupSuffix ist leer!",
	"password.invalid":     "Falsches Passwort!",
	"passwords.different":  "Die Passwörter sind unterschiedlich!",
	"password.changed":     "Passwort geändert!",
	"settings.saving":      "Folgende Einstellungen werden gespeichert:",
	"settings.save_failed": "Die Einstellungen konnten nicht gespeichert werden!",
	"password.too_long":    "Das Passwort ist zu lang!",
	"request.invalid":      "Ungültige Anfrage.",
	"request.too_many":     "Zu viele Versuche, bitte eine Minute warten.",

	"login.title":  "LAM Konfiguration Anmeldung",
	"login.prompt": "Bitte das Konfigurationspasswort eingeben:",
	"login.submit": "Anmelden",

	"form.title":           "LAM Konfiguration",
	"form.password":        "Konfigurationspasswort",
	"form.host":            "Hostname",
	"form.port":            "Portnummer",
	"form.admins":          "Liste der gültigen Benutzer (getrennt durch ;)",
	"form.ssl":             "SSL verwenden",
	"form.usersuffix":      "UserSuffix",
	"form.groupsuffix":     "GroupSuffix",
	"form.hostsuffix":      "HostSuffix",
	"form.newpassword":     "Neues Passwort",
	"form.confirmpassword": "Passwort wiederholen",
	"form.submit":          "Speichern",
}
