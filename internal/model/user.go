package model

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// User 引擎只需要计算用的少量档案字段（性别、身高、体重），
// 账号和鉴权不在本服务范围内
type User struct {
	BaseModel
	Name       string  `gorm:"size:100;not null" json:"name"`
	Gender     Gender  `gorm:"type:enum('male','female');default:'male'" json:"gender"`
	HeightCm   float64 `gorm:"default:0" json:"heightCm"`
	BodyWeight float64 `gorm:"default:0" json:"bodyWeight"`
}

func (User) TableName() string {
	return "users"
}
