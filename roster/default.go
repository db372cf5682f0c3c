package roster

import "museum/solver"

// Default returns the roster used when no saved state exists.
func Default() *Roster {
	return &Roster{
		members: []solver.Member{
			{Name: "娜塔莎", Attribute: solver.Attr(56, 15, 64)},
			{Name: "希露瓦", Attribute: solver.Attr(68, 57, 10)},
			{Name: "帕金斯", Attribute: solver.Attr(42, 22, 65)},
			{Name: "匹克", Attribute: solver.Attr(44, 54, 10)},
			{Name: "罗希", Attribute: solver.Attr(54, 54, 0)},
			{Name: "狡猾的小孩子", Attribute: solver.Attr(8, 58, 42)},
			{Name: "尤利安", Attribute: solver.Attr(52, 20, 36)},
			{Name: "吉尔伯特", Attribute: solver.Attr(36, 40, 20)},
			{Name: "莉拉", Attribute: solver.Attr(52, 14, 30)},
			{Name: "费斯曼", Attribute: solver.Attr(50, 29, 17)},
			{Name: "佩拉", Attribute: solver.Attr(30, 30, 30)},
			{Name: "亚诺", Attribute: solver.Attr(40, 8, 30)},
			{Name: "伊蕾恩", Attribute: solver.Attr(26, 26, 26)},
			{Name: "希露瓦的狂热粉丝", Attribute: solver.Attr(20, 44, 14)},
		},
		zones: []solver.Zone{
			{
				Name:        "综合区-外",
				Base:        solver.Attr(30, 30, 30),
				SubLevel:    solver.Attr(10, 10, 10),
				Requirement: solver.Attr(256, 220, 255),
				Scaler:      DefaultScaler,
			},
			{
				Name:        "综合区-内",
				Base:        solver.Attr(80, 80, 80),
				SubLevel:    solver.Attr(4, 8, 2),
				Requirement: solver.Attr(205, 245, 150),
				Scaler:      DefaultScaler,
			},
		},
	}
}
