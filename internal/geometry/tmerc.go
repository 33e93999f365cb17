package geometry

import "math"

// WGS84 ellipsoid and UTM projection constants.
const (
	semiMajorAxis = 6378137.0
	flattening    = 1.0 / 298.257223563
	utmScale      = 0.9996
	falseEasting  = 500000.0
	falseNorthing = 10000000.0
)

var (
	ecc2  = flattening * (2 - flattening) // first eccentricity squared
	eccP2 = ecc2 / (1 - ecc2)             // second eccentricity squared
)

func centralMeridian(zone int) float64 {
	return float64(zone*6 - 183)
}

// utmForward converts geographic degrees to UTM easting/northing for the
// given zone using the transverse mercator series expansion.
func utmForward(lon, lat float64, zone int, south bool) (x, y float64) {
	phi := lat * math.Pi / 180
	lam := lon * math.Pi / 180
	lam0 := centralMeridian(zone) * math.Pi / 180

	sinPhi := math.Sin(phi)
	cosPhi := math.Cos(phi)
	tanPhi := math.Tan(phi)

	n := semiMajorAxis / math.Sqrt(1-ecc2*sinPhi*sinPhi)
	t := tanPhi * tanPhi
	c := eccP2 * cosPhi * cosPhi
	a := cosPhi * (lam - lam0)

	m := meridionalArc(phi)

	x = utmScale*n*(a+(1-t+c)*a*a*a/6+
		(5-18*t+t*t+72*c-58*eccP2)*math.Pow(a, 5)/120) + falseEasting
	y = utmScale * (m + n*tanPhi*(a*a/2+
		(5-t+9*c+4*c*c)*math.Pow(a, 4)/24+
		(61-58*t+t*t+600*c-330*eccP2)*math.Pow(a, 6)/720))
	if south {
		y += falseNorthing
	}
	return x, y
}

// utmInverse converts UTM easting/northing back to geographic degrees.
func utmInverse(x, y float64, zone int, south bool) (lon, lat float64) {
	if south {
		y -= falseNorthing
	}
	x -= falseEasting
	lam0 := centralMeridian(zone) * math.Pi / 180

	m := y / utmScale
	mu := m / (semiMajorAxis * (1 - ecc2/4 - 3*ecc2*ecc2/64 - 5*ecc2*ecc2*ecc2/256))

	e1 := (1 - math.Sqrt(1-ecc2)) / (1 + math.Sqrt(1-ecc2))
	phi1 := mu +
		(3*e1/2-27*math.Pow(e1, 3)/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*math.Pow(e1, 4)/32)*math.Sin(4*mu) +
		(151*math.Pow(e1, 3)/96)*math.Sin(6*mu) +
		(1097*math.Pow(e1, 4)/512)*math.Sin(8*mu)

	sinPhi1 := math.Sin(phi1)
	cosPhi1 := math.Cos(phi1)
	tanPhi1 := math.Tan(phi1)

	c1 := eccP2 * cosPhi1 * cosPhi1
	t1 := tanPhi1 * tanPhi1
	n1 := semiMajorAxis / math.Sqrt(1-ecc2*sinPhi1*sinPhi1)
	r1 := semiMajorAxis * (1 - ecc2) / math.Pow(1-ecc2*sinPhi1*sinPhi1, 1.5)
	d := x / (n1 * utmScale)

	phi := phi1 - (n1*tanPhi1/r1)*(d*d/2-
		(5+3*t1+10*c1-4*c1*c1-9*eccP2)*math.Pow(d, 4)/24+
		(61+90*t1+298*c1+45*t1*t1-252*eccP2-3*c1*c1)*math.Pow(d, 6)/720)
	lam := lam0 + (d-(1+2*t1+c1)*math.Pow(d, 3)/6+
		(5-2*c1+28*t1-3*c1*c1+8*eccP2+24*t1*t1)*math.Pow(d, 5)/120)/cosPhi1

	return lam * 180 / math.Pi, phi * 180 / math.Pi
}

// meridionalArc returns the ellipsoidal arc length from the equator to
// latitude phi (radians).
func meridionalArc(phi float64) float64 {
	e2 := ecc2
	e4 := e2 * e2
	e6 := e4 * e2
	return semiMajorAxis * ((1-e2/4-3*e4/64-5*e6/256)*phi -
		(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*phi) +
		(15*e4/256+45*e6/1024)*math.Sin(4*phi) -
		(35*e6/3072)*math.Sin(6*phi))
}
