package erp

import (
	"fmt"
	"strings"
	"time"

	apperrors "dpt/internal/errors"
)

// Schedule names.
const (
	ScheduleAM   = "am"
	SchedulePM   = "pm"
	ScheduleFull = "full"
)

// AllRepos matches every repository in the repository query field.
const AllRepos = "*"

// catchUpDays is how far back the Monday catch-up query reaches.
const catchUpDays = 6

// Job is one ST export: the records expected on Date for Repo, or on and
// after Date when Since is set.
type Job struct {
	Date  string `json:"date"`
	Repo  string `json:"repo"`
	Since bool   `json:"since"`
}

// Query is the expected date field value.
func (j Job) Query() string {
	if j.Since {
		return ">=" + j.Date
	}
	return j.Date
}

// String describes the job for logs.
func (j Job) String() string {
	return fmt.Sprintf("ST %s repo %s", j.Query(), j.Repo)
}

// FileName is the name the export is stored under, keeping ext.
func (j Job) FileName(ext string) string {
	repo := j.Repo
	if repo == AllRepos {
		repo = "all"
	}
	date := strings.ReplaceAll(j.Date, "/", "")
	if j.Since {
		date = "from" + date
	}
	return fmt.Sprintf("st_%s_%s%s", date, repo, ext)
}

// BuildSchedule returns the jobs of the named schedule for now. localRepo is
// the repository whose same-day records are fetched separately.
//
//	am    next day (all), today (local)
//	pm    next day (all)
//	full  next day (all), today (all), today (local),
//	      plus the last week (all) on Mondays
func BuildSchedule(name string, now time.Time, localRepo string) ([]Job, error) {
	next := NextDay(now)
	today := Today(now)

	switch name {
	case ScheduleAM:
		return []Job{
			{Date: next, Repo: AllRepos},
			{Date: today, Repo: localRepo},
		}, nil
	case SchedulePM:
		return []Job{
			{Date: next, Repo: AllRepos},
		}, nil
	case ScheduleFull:
		jobs := []Job{
			{Date: next, Repo: AllRepos},
			{Date: today, Repo: AllRepos},
			{Date: today, Repo: localRepo},
		}
		if IsMonday(now) {
			jobs = append(jobs, Job{Date: DaysAgo(now, catchUpDays), Repo: AllRepos, Since: true})
		}
		return jobs, nil
	default:
		return nil, apperrors.NewAppValidationError(
			fmt.Sprintf("unknown schedule %q, want one of %s, %s, %s", name, ScheduleAM, SchedulePM, ScheduleFull))
	}
}
