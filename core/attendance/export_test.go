package attendance

import "time"

func SetNowFunc(svc *Service, now func() time.Time) {
	svc.now = now
}
