package mocks

//go:generate mockery --name Reader --srcpkg github.com/lia-lab/lia-sync/internal/source --output ./source --outpkg sourcemocks --with-expecter
//go:generate mockery --name SampleStore --srcpkg github.com/lia-lab/lia-sync/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
