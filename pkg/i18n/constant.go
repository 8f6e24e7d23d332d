package i18n

var ALLOW_LANG = map[string]bool{
	"en":    true,
	"zh-CN": true,
}

const DEFAULT_LANG = "en"

const (
	ERROR_INTERNAL          = "error.internal"
	ERROR_NOT_FOUND         = "error.notfound"
	ERROR_INVALIDARGUMENT   = "error.invalidargument"
	ERROR_PERMISSION_DENIED = "error.permission.denied"
	ERROR_UNAUTHORIZED      = "error.unauthorized"
	ERROR_FORBIDDEN         = "error.forbidden"
	ERROR_TOO_MANY_REQUESTS = "error.tooManyRequests"
	ERROR_MORE_TAHN_MAX     = "error.moreThanMax"
	ERROR_INVALID_TOKEN     = "error.invalid.token"

	ERROR_TITLE_REQUIRED       = "error.title.required"
	ERROR_MEDIA_TYPE_MISMATCH  = "error.media.type.mismatch"
	ERROR_MEDIA_KIND_UNSUPPORT = "error.media.kind.unsupport"
	ERROR_CAPTURE              = "error.capture"
	ERROR_CAPTURE_BUSY         = "error.capture.busy"
	ERROR_STORAGE              = "error.storage"
	ERROR_STORAGE_OBJECT_EXIST = "error.storage.object.exist"
	ERROR_REMOTE               = "error.remote"
	ERROR_SERVICE_UNAVAILABLE  = "error.service.unavailable"
)
